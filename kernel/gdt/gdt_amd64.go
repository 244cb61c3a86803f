// Package gdt builds the kernel's global descriptor table, the 64-bit task
// state segment and its two interrupt-stack-table entries, and installs all
// three on the CPU.
package gdt

import "unsafe"

// Selector identifies one GDT entry, shifted left by 3 and ORed with the
// requested privilege level, ready to be loaded into a segment register.
type Selector uint16

// IST slots are numbered from 1, as in an IDT gate descriptor, where 0 means
// that no IST stack is used; slot n is stored in the TSS's ist[n-1].
const (
	// DoubleFaultISTIndex is the IST slot used by the double-fault and the
	// other synchronous-fault handlers that must never run on a
	// potentially corrupted kernel stack.
	DoubleFaultISTIndex = 1

	// InterruptStackIndex is the IST slot used by the timer interrupt
	// trampoline, which always switches to a known-good stack before
	// invoking the scheduler.
	InterruptStackIndex = 2

	istStackSize = 4096 * 5
)

// descriptor is one raw 8-byte GDT entry, built by the segmentDescriptor
// helpers below rather than addressed field-by-field: the code/data
// segment descriptor layout at this privilege model only varies in a
// handful of access-byte bits.
type descriptor uint64

const (
	accessPresent     = 1 << 47
	accessNotSystem   = 1 << 44
	accessExecutable  = 1 << 43
	accessReadWrite   = 1 << 41
	accessDPL3        = 3 << 45
	flagsLongMode     = 1 << 53
	flagsGranularity  = 1 << 55
	flagsDefaultSize  = 1 << 54
)

func kernelCodeSegment() descriptor {
	return descriptor(accessPresent | accessNotSystem | accessExecutable | accessReadWrite | flagsLongMode)
}

func kernelDataSegment() descriptor {
	return descriptor(accessPresent | accessNotSystem | accessReadWrite | flagsGranularity | flagsDefaultSize)
}

func userDataSegment() descriptor {
	return descriptor(kernelDataSegment() | accessDPL3)
}

func userCodeSegment() descriptor {
	return descriptor(kernelCodeSegment() | accessDPL3)
}

// TaskStateSegment is the 64-bit TSS. Only the IST entries are used:
// sharkos never uses the legacy hardware task-switch mechanism the rest of
// the structure was designed for.
type TaskStateSegment struct {
	reserved0 uint32
	rsp       [3]uint64
	reserved1 uint64
	ist       [7]uint64
	reserved2 uint64
	reserved3 uint16
	ioMapBase uint16
}

var (
	tss TaskStateSegment

	doubleFaultStack [istStackSize]byte
	interruptStack   [istStackSize]byte

	entries [5]descriptor

	// Selectors is populated by Init and names the selector value for
	// each GDT entry this package installs.
	Selectors struct {
		Code     Selector
		Data     Selector
		UserData Selector
		UserCode Selector
		TSS      Selector
	}
)

// Init builds the GDT and TSS, points the TSS's two IST slots at their
// dedicated stack arenas, and loads all three onto the CPU.
func Init() {
	tss.ist[DoubleFaultISTIndex-1] = uint64(uintptr(unsafe.Pointer(&doubleFaultStack[0]))) + istStackSize
	tss.ist[InterruptStackIndex-1] = uint64(uintptr(unsafe.Pointer(&interruptStack[0]))) + istStackSize

	entries[0] = 0
	entries[1] = kernelCodeSegment()
	entries[2] = kernelDataSegment()
	entries[3] = userDataSegment()
	entries[4] = userCodeSegment()

	Selectors.Code = Selector(1 << 3)
	Selectors.Data = Selector(2 << 3)
	Selectors.UserData = Selector(3<<3 | 3)
	Selectors.UserCode = Selector(4<<3 | 3)
	Selectors.TSS = Selector(5 << 3)

	loadGDT(&entries[0], uint16(len(entries))*8-1)
	loadTSS(&tss, Selectors.TSS)
}

// loadGDT installs the descriptor table pointed to by entries (len-1 bytes
// long, per the LGDT convention) and reloads CS/SS from the kernel code and
// data selectors this package just built.
func loadGDT(entries *descriptor, limit uint16)

// loadTSS appends a TSS descriptor after the last static GDT entry and
// loads it with LTR.
func loadTSS(tss *TaskStateSegment, selector Selector)
