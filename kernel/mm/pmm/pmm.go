// Package pmm implements the physical page frame allocator. Free runs of
// frames are tracked in place: the first frame of each run stores a node
// carrying the run's size and a pointer to the next run, addressed through
// the kernel's physical memory window. There is no auxiliary metadata and
// no coalescing; allocation is first-fit from the list head, taken from the
// high end of the matching run so the run's own node stays valid until the
// run is exhausted.
package pmm

import (
	"sharkos/kernel"
	"sharkos/kernel/boot"
	"sharkos/kernel/mm"
	"sharkos/kernel/sync"
	"unsafe"
)

// sentinelAddr terminates the free list.
const sentinelAddr = ^uintptr(0)

// node is the in-place free-list header written at the first frame of every
// free run.
type node struct {
	next uintptr // physical address of the next run's node, or sentinelAddr
	size uintptr // number of frames in this run
}

var (
	listLock sync.Spinlock
	listHead uintptr = sentinelAddr
)

// Init builds the free list from the bootloader-reported usable memory
// regions. Each usable region contributes exactly one free-list node,
// written at the region's first frame.
func Init(info *boot.Info) *kernel.Error {
	listLock.Acquire()
	defer listLock.Release()

	listHead = sentinelAddr

	var tailNode *node

	for _, region := range info.UsableRegions() {
		base := (region.Start + mm.PageSize - 1) &^ (mm.PageSize - 1)
		end := region.End &^ (mm.PageSize - 1)
		if end <= base {
			continue
		}

		frameCount := (end - base) / mm.PageSize
		if frameCount == 0 {
			continue
		}

		n := nodeAt(base)
		n.size = frameCount
		n.next = sentinelAddr

		if tailNode == nil {
			listHead = base
		} else {
			tailNode.next = base
		}

		tailNode = n
	}

	mm.SetFrameAllocator(AllocFrame)
	return nil
}

// nodeAt returns a pointer to the free-list node stored at the first frame
// of the run starting at the given physical address.
func nodeAt(physAddr uintptr) *node {
	return (*node)(unsafe.Pointer(mm.PhysWindow(physAddr)))
}

// AllocFrame hands out a single zeroed, page-aligned physical frame, or
// mm.InvalidFrame if no free run is large enough.
func AllocFrame() (mm.Frame, *kernel.Error) {
	addr, err := Allocate(1)
	if err != nil {
		return mm.InvalidFrame, err
	}
	if addr == 0 {
		return mm.InvalidFrame, nil
	}
	return mm.FrameFromAddress(addr), nil
}

// Allocate walks the free list from the head, stopping at the first run
// whose size is at least count frames. The returned frames are taken from
// the high end of that run, zeroed through the physical window, and the run
// is shrunk (or unlinked, if it is now empty). Returns the reserved value 0
// if no run is large enough.
func Allocate(count uintptr) (uintptr, *kernel.Error) {
	listLock.Acquire()
	defer listLock.Release()

	var prevAddr uintptr = sentinelAddr
	curAddr := listHead

	for curAddr != sentinelAddr {
		cur := nodeAt(curAddr)

		if cur.size >= count {
			cur.size -= count
			start := curAddr + cur.size*mm.PageSize

			if cur.size == 0 {
				if prevAddr == sentinelAddr {
					listHead = cur.next
				} else {
					nodeAt(prevAddr).next = cur.next
				}
			}

			kernel.Memset(mm.PhysWindow(start), 0, count*mm.PageSize)
			return start, nil
		}

		prevAddr = curAddr
		curAddr = cur.next
	}

	return 0, nil
}

// Free splices a run of count frames starting at addr back into the free
// list. No coalescing with neighboring runs is performed; this operation is
// exposed for completeness but is not exercised by the rest of the kernel in
// this version (memory reclamation is a non-goal).
func Free(addr uintptr, count uintptr) {
	listLock.Acquire()
	defer listLock.Release()

	var prevAddr uintptr = sentinelAddr
	curAddr := listHead

	for curAddr != sentinelAddr && curAddr <= addr {
		prevAddr = curAddr
		curAddr = nodeAt(curAddr).next
	}

	n := nodeAt(addr)
	n.size = count
	n.next = curAddr

	if prevAddr == sentinelAddr {
		listHead = addr
	} else {
		nodeAt(prevAddr).next = addr
	}
}
