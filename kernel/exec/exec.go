// Package exec loads sharkos's segmented, ELF-like executable format into a
// process's address space.
package exec

import (
	"sharkos/kernel"
	"sharkos/kernel/mm"
	"sharkos/kernel/mm/vmm"
	"unsafe"
)

const (
	magic        = 0x464c457f
	machineX8664 = 0x3e
	typeExecutable = 2
	segTypeLoad  = 1
)

// header mirrors the fixed-size executable header. Field order and widths
// match the on-disk layout exactly; this struct is only ever read through
// an unsafe cast over a byte slice, never constructed directly.
type header struct {
	Magic           uint32
	Bitsize         uint8
	Endian          uint8
	IdentABIVersion uint8
	TargetPlatform  uint8
	ABIVersion      uint8
	Padding         [7]uint8
	ObjType         uint16
	Machine         uint16
	Version         uint32
	EntryAddr       uintptr
	ProgramHeaderOffset uintptr
	ShOff           uintptr
	Flags           uint32
	Ehsize          uint16
	Phentsize       uint16
	Phnum           uint16
	Shentsize       uint16
	Shnum           uint16
	Shstrndx        uint16
}

// programHeader describes one loadable (or ignorable) segment.
type programHeader struct {
	SegType uint32
	Flags   uint32
	Off     uintptr
	VAddr   uintptr
	PAddr   uintptr
	Filesz  uintptr
	Memsz   uintptr
	Align   uintptr
}

var (
	// ErrMissing is returned when buffer is too small to hold a header.
	ErrMissing = &kernel.Error{Module: "exec", Message: "buffer too small for an executable header"}

	// ErrWrongMagic is returned when the header's magic number does not match.
	ErrWrongMagic = &kernel.Error{Module: "exec", Message: "unrecognized executable magic number"}

	// ErrWrongMachine is returned when the header targets a machine other
	// than x86_64.
	ErrWrongMachine = &kernel.Error{Module: "exec", Message: "executable targets an unsupported machine"}

	// ErrWrongType is returned when the header does not describe an
	// executable object.
	ErrWrongType = &kernel.Error{Module: "exec", Message: "executable header is not of type EXECUTABLE"}
)

// Load validates buffer as a sharkos executable, maps each PT_LOAD segment
// into top with read/write/user permissions and copies the segment's file
// contents into place, then returns the entry point recorded in the header.
//
// Demand paging is a non-goal: every page a segment spans is allocated and
// copied eagerly, never faulted in lazily.
func Load(buffer []byte, top vmm.Table) (uintptr, *kernel.Error) {
	if uintptr(len(buffer)) < unsafe.Sizeof(header{}) {
		return 0, ErrMissing
	}

	hdr := (*header)(unsafe.Pointer(&buffer[0]))

	if hdr.Magic != magic {
		return 0, ErrWrongMagic
	}
	if hdr.Machine != machineX8664 {
		return 0, ErrWrongMachine
	}
	if hdr.ObjType != typeExecutable {
		return 0, ErrWrongType
	}

	phTab := (*[1 << 16]programHeader)(unsafe.Pointer(&buffer[hdr.ProgramHeaderOffset]))

	for i := uint16(0); i < hdr.Phnum; i++ {
		ph := &phTab[i]

		if ph.SegType != segTypeLoad || ph.Memsz == 0 {
			continue
		}

		pageStart := ph.VAddr &^ (mm.PageSize - 1)
		pageCount := (ph.VAddr - pageStart + ph.Memsz + mm.PageSize - 1) / mm.PageSize
		fileEnd := ph.VAddr + ph.Filesz

		// Each page may come from an unrelated physical frame, so the
		// segment's bytes are copied one page at a time through that
		// page's own physical-window address rather than through its
		// (possibly inactive) virtual mapping.
		for p := uintptr(0); p < pageCount; p++ {
			frame, err := mm.AllocFrame()
			if err != nil {
				return 0, err
			}

			pageVAddr := pageStart + p*mm.PageSize
			if err := vmm.CreateMapping(top, pageVAddr, frame.Address(), vmm.FlagRW|vmm.FlagUserAccessible); err != nil {
				return 0, err
			}

			window := mm.PhysWindow(frame.Address())
			kernel.Memset(window, 0, mm.PageSize)

			overlapStart := max(pageVAddr, ph.VAddr)
			overlapEnd := min(pageVAddr+mm.PageSize, fileEnd)
			if overlapEnd <= overlapStart {
				continue
			}

			srcOff := ph.Off + (overlapStart - ph.VAddr)
			dstOff := window + (overlapStart - pageVAddr)
			kernel.Memcopy(uintptr(unsafe.Pointer(&buffer[srcOff])), dstOff, overlapEnd-overlapStart)
		}
	}

	return hdr.EntryAddr, nil
}
