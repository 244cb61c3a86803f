// Package kmain wires every subsystem together and hands control to the
// scheduler. It is the Go analogue of the teacher's original_source
// main.rs: initialize() followed by main()'s process launch and final
// handoff, rewritten against this module's own packages.
package kmain

import (
	_ "embed"

	"sharkos/kernel"
	"sharkos/kernel/apic"
	"sharkos/kernel/boot"
	"sharkos/kernel/console"
	"sharkos/kernel/cpu"
	"sharkos/kernel/gate"
	"sharkos/kernel/gdt"
	"sharkos/kernel/goruntime"
	"sharkos/kernel/kfmt"
	"sharkos/kernel/mm"
	"sharkos/kernel/mm/pmm"
	"sharkos/kernel/mm/vmm"
	"sharkos/kernel/sched"
	"sharkos/kernel/syscall"
	"sharkos/kernel/trap"
)

//go:embed programs/hello.bin
var helloProgram []byte

//go:embed programs/second.bin
var secondProgram []byte

// apicMMIOBase is the well-known physical address the local APIC's MMIO
// registers are mapped at on every x86_64 platform.
const apicMMIOBase = 0xfee0_0000

// userStackBase is the virtual address each launched process's two-page
// stack is mapped at. Every process gets an identical address since each
// has its own address space.
const userStackBase = 0x2000_0000

var (
	haltFn = cpu.Halt

	// initOrder lists the leaf subsystems' Init calls in the dependency
	// order initialize() establishes them in: the physical window and
	// physical allocator must exist before the virtual memory manager,
	// which must exist before the Go allocator, which must exist before
	// anything that uses maps or interfaces (gate's handler table,
	// sched's process slice).
	initOrder = []func() *kernel.Error{
		vmm.Init,
		goruntime.Init,
	}
)

// Kmain is the Go entry point the boot protocol shim hands off to once it
// has parsed the bootloader's payload into a boot.Info value. It performs
// the complete boot sequence: establishes the physical window and page
// tables, brings up the Go allocator, programs the descriptor tables and
// the LAPIC timer, loads the bundled user programs and starts preemptive
// execution.
//
// Kmain is not expected to return.
func Kmain(info *boot.Info) {
	boot.SetInfo(info)
	mm.SetPhysOffset(info.PhysOffset)

	kfmt.Printf("booting\n")

	if err := pmm.Init(info); err != nil {
		panic(err)
	}
	mm.SetFrameAllocator(pmm.AllocFrame)

	for _, initFn := range initOrder {
		if err := initFn(); err != nil {
			panic(err)
		}
	}

	kfmt.SetOutputSink(console.New(info.Framebuffer, 0xffffff, 0x000000))

	gdt.Init()
	gate.Init()
	trap.Init()

	const cpuidFeatEdxAPIC = 1 << 9
	_, _, _, edx := cpu.ID(1)
	if edx&cpuidFeatEdxAPIC == 0 {
		panic(&kernel.Error{Module: "kmain", Message: "CPU reports no local APIC support"})
	}

	if err := vmm.CreateMapping(vmm.KernelTable(), apicMMIOBase, apicMMIOBase, vmm.FlagRW|vmm.FlagDoNotCache); err != nil {
		panic(err)
	}
	apic.Init(apicMMIOBase)
	apic.EnableTimerInterrupts()

	syscall.Init()
	sched.Init()

	kfmt.Printf("welcome to sharkos\n")

	if _, err := sched.Load(helloProgram, userStackBase); err != nil {
		panic(err)
	}
	if _, err := sched.Load(secondProgram, userStackBase); err != nil {
		panic(err)
	}

	if err := sched.Start(); err != nil {
		panic(err)
	}
	cpu.EnableInterrupts()

	for {
		haltFn()
	}
}
