package vmm

import (
	"sharkos/kernel"
	"sharkos/kernel/cpu"
	"sharkos/kernel/mm"
)

var (
	// flushTLBEntryFn is used by tests to override calls to flushTLBEntry
	// which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry

	errNoHugePageSupport = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// CreateMapping establishes a mapping between a page-aligned virtual address
// and a page-aligned physical address inside the given top-level table. At
// each of the three upper levels, a missing entry causes a fresh table frame
// to be allocated, zeroed and installed with flags ORed with FlagPresent;
// an already-present interior entry has flags ORed into it so that
// permissions escalate along the walk. The leaf entry must be absent;
// overwriting an already-present leaf is a fatal invariant violation.
func CreateMapping(top Table, virtAddr, physAddr uintptr, flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error

	walk(top, virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				panic(errAlreadyMapped)
			}

			*pte = 0
			pte.SetFrame(mm.FrameFromAddress(physAddr))
			pte.SetFlags(flags | FlagPresent)
			flushTLBEntryFn(virtAddr)
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		if !pte.HasFlags(FlagPresent) {
			var newTableFrame mm.Frame
			newTableFrame, err = mm.AllocFrame()
			if err != nil {
				return false
			}

			kernel.Memset(physWindow(newTableFrame.Address()), 0, mm.PageSize)

			*pte = 0
			pte.SetFrame(newTableFrame)
			pte.SetFlags(flags | FlagPresent)
			return true
		}

		pte.SetFlags(flags)
		return true
	})

	return err
}

// Unmap clears the present flag on the leaf entry that corresponds to
// virtAddr. Returns ErrInvalidMapping if a table on the walk to that leaf is
// not present; a leaf entry that is already non-present is cleared again and
// no error is returned.
func Unmap(top Table, virtAddr uintptr) *kernel.Error {
	var err *kernel.Error

	walk(top, virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if pteLevel == pageLevels-1 {
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(virtAddr)
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		return true
	})

	return err
}

// Translate returns the physical address that corresponds to the supplied
// virtual address inside the given top-level table, or ErrInvalidMapping.
func Translate(top Table, virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, err := pteForAddress(top, virtAddr)
	if err != nil {
		return 0, err
	}

	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1)
}

var errAlreadyMapped = &kernel.Error{Module: "vmm", Message: "attempted to overwrite an already-present leaf mapping"}
