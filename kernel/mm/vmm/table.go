package vmm

import (
	"sharkos/kernel"
	"sharkos/kernel/cpu"
	"sharkos/kernel/mm"
	"unsafe"
)

var (
	// activePDTFn is used by tests to override calls to activePDT which
	// will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	// switchPDTFn is used by tests to override calls to switchPDT which
	// will cause a fault if called in user-mode.
	switchPDTFn = cpu.SwitchPDT

	// kernelTop is the top-level table frame captured once during Init. It
	// is installed whenever the kernel dereferences a virtual address
	// outside the physical window.
	kernelTop mm.Frame

	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}
)

// Table describes the top-most table (PML4) in the 4-level paging scheme.
// Its zero value is invalid; use KernelTable or CloneTop to obtain one.
type Table struct {
	frame mm.Frame
}

// KernelTable returns the top-level table captured during Init.
func KernelTable() Table {
	return Table{frame: kernelTop}
}

// TableFromFrame wraps a physical frame already known to hold a top-level
// table, such as one recorded by the scheduler in a process's saved state.
func TableFromFrame(frame mm.Frame) Table {
	return Table{frame: frame}
}

// Frame returns the physical frame backing this table.
func (t Table) Frame() mm.Frame {
	return t.frame
}

// CloneTop allocates a fresh top-level table, byte-copies the current
// kernel top-level table into it and zeroes index 0 (the user
// low-canonical half). Kernel mappings above KernelStartBoundary are
// shared by physical reference with every cloned table.
func CloneTop() (Table, *kernel.Error) {
	newFrame, err := mm.AllocFrame()
	if err != nil {
		return Table{}, err
	}

	src := physWindow(kernelTop.Address())
	dst := physWindow(newFrame.Address())
	kernel.Memcopy(src, dst, mm.PageSize)

	firstEntry := (*pageTableEntry)(unsafe.Pointer(dst))
	*firstEntry = 0

	return Table{frame: newFrame}, nil
}

// Activate writes cr3 with this table's physical address and flushes the TLB.
func (t Table) Activate() {
	switchPDTFn(t.frame.Address())
}

// ActivateKernel restores the kernel top-level table captured during Init.
func ActivateKernel() {
	switchPDTFn(kernelTop.Address())
}

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

// pageTableEntry describes a page table entry. These entries encode a
// physical frame address and a set of flags.
type pageTableEntry uintptr

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// SetFlags ORs the input flags into the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uintptr(*pte) &^ uintptr(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame((uintptr(pte) & ptePhysPageMask) >> mm.PageShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | frame.Address())
}

// physWindow translates a physical address into the virtual address that
// names it through the fixed physical-memory window.
func physWindow(physAddr uintptr) uintptr {
	return mm.PhysWindow(physAddr)
}

// ptePtrFn returns a pointer to the supplied entry address. It is used by
// tests to override the generated page table entry pointers so walk() can be
// exercised without real page tables.
var ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
	return unsafe.Pointer(entryAddr)
}

// pageTableWalker is invoked by walk with the current page level and the
// page table entry that corresponds to it. Returning false aborts the walk.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// top's PML4, invoking walkFn with the entry at each of the four levels.
// Every physical table is dereferenced directly through the physical window;
// no temporary mappings are required.
func walk(top Table, virtAddr uintptr, walkFn pageTableWalker) {
	tableAddr := physWindow(top.frame.Address())

	for level := uint8(0); level < pageLevels; level++ {
		entryIndex := (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entryAddr := tableAddr + (entryIndex << mm.PointerShift)
		pte := (*pageTableEntry)(ptePtrFn(entryAddr))

		if !walkFn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			tableAddr = physWindow(pte.Frame().Address())
		}
	}
}

// pteForAddress returns the final page table entry that corresponds to a
// particular virtual address, or ErrInvalidMapping if any level along the
// walk is not present.
func pteForAddress(top Table, virtAddr uintptr) (*pageTableEntry, *kernel.Error) {
	var (
		err   *kernel.Error
		entry *pageTableEntry
	)

	walk(top, virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			entry = nil
			err = ErrInvalidMapping
			return false
		}

		entry = pte
		return true
	})

	return entry, err
}
