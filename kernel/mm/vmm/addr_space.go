package vmm

import (
	"sharkos/kernel"
	"sharkos/kernel/mm"
	"sharkos/kernel/sync"
)

var (
	heapLock sync.Spinlock

	// heapPages tracks how many consecutive 4 KiB pages have been mapped
	// for each outstanding kernel-heap allocation, keyed by its base
	// virtual address. It is consulted by Grow to find the next free leaf
	// slot for an allocation.
	heapPages = make(map[uintptr]uintptr)

	// nextHeapSlot is the next unused top-level table index considered by
	// Allocate. Indices are handed out monotonically; this version never
	// reclaims a slot (deallocate is unimplemented).
	nextHeapSlot uintptr = kernelStartIndex

	errHeapExhausted = &kernel.Error{Module: "vmm", Message: "no free top-level slot for kernel heap allocation"}
)

// slotAddress converts a top-level table index at or above
// kernelStartIndex into its canonical, sign-extended virtual address.
func slotAddress(index uintptr) uintptr {
	return KernelStartBoundary + (index-kernelStartIndex)<<pageLevelShifts[0]
}

// Allocate returns a 4 KiB block of zeroed, writable virtual memory carved
// out of a fresh top-level table slot in the kernel's high half. Alignment
// requests above 4096 bytes are not supported by this allocator.
func Allocate() (uintptr, *kernel.Error) {
	heapLock.Acquire()
	defer heapLock.Release()

	if nextHeapSlot >= 512 {
		return 0, errHeapExhausted
	}

	index := nextHeapSlot
	nextHeapSlot++

	virtAddr := slotAddress(index)

	frame, err := mm.AllocFrame()
	if err != nil {
		return 0, err
	}

	if err := CreateMapping(KernelTable(), virtAddr, frame.Address(), FlagRW); err != nil {
		return 0, err
	}

	heapPages[virtAddr] = 1
	return virtAddr, nil
}

// Grow extends the allocation that starts at ptr so that it covers newSize
// bytes, by appending freshly allocated frames into the leaf slots that
// immediately follow the allocation's current last page. Grow assumes the
// new size never crosses the higher-level table boundary established when
// the allocation's slot was first mapped.
func Grow(ptr uintptr, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
	heapLock.Acquire()
	defer heapLock.Release()

	mappedPages, ok := heapPages[ptr]
	if !ok {
		return 0, ErrInvalidMapping
	}

	wantPages := (newSize + mm.PageSize - 1) / mm.PageSize
	for mappedPages < wantPages {
		pageAddr := ptr + mappedPages*mm.PageSize

		frame, err := mm.AllocFrame()
		if err != nil {
			return 0, err
		}

		if err := CreateMapping(KernelTable(), pageAddr, frame.Address(), FlagRW); err != nil {
			return 0, err
		}

		mappedPages++
	}

	heapPages[ptr] = mappedPages
	return ptr, nil
}

