// Package vmm implements the kernel's four-level virtual-memory manager. It
// builds, clones and mutates page tables, translates addresses through a
// fixed physical-memory window instead of a recursive self-mapping, and
// doubles as the kernel's virtual heap by demand-mapping 4 KiB pages into a
// reserved high-half range.
package vmm

import (
	"sharkos/kernel"
	"sharkos/kernel/cpu"
	"sharkos/kernel/mm"
)

var (
	// readCR2Fn is mocked by tests and automatically inlined by the compiler.
	readCR2Fn = cpu.ReadCR2

	errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "page/gpf fault"}
)

// Init captures the page table that is active at boot time as the kernel's
// top-level table and installs the paging-related exception handlers. The
// physical window (mm.PhysOffset) must already have been established by the
// boot handoff shim; the bootloader is also responsible for the kernel's own
// mappings, which this package never rebuilds from scratch.
func Init() *kernel.Error {
	kernelTop = mm.FrameFromAddress(activePDTFn())

	installFaultHandlers()
	return nil
}

// PhysAddr returns the virtual address, through the physical window, that
// names the given physical frame's contents.
func PhysAddr(frame mm.Frame) uintptr {
	return physWindow(frame.Address())
}
