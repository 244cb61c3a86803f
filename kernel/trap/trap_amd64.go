// Package trap installs sharkos's general-purpose exception handlers: the
// ones that are always fatal, the diagnostic handler for invalid opcodes,
// and the inert handlers a retired legacy PIC or a spurious LAPIC vector
// might still raise. Page faults and general-protection faults are paging
// concerns and are wired separately by kernel/mm/vmm.
package trap

import (
	"sharkos/kernel"
	"sharkos/kernel/cpu"
	"sharkos/kernel/gate"
	"sharkos/kernel/gdt"
	"sharkos/kernel/kfmt"
	"unsafe"
)

var (
	// handleInterruptFn and haltFn are mocked by tests.
	handleInterruptFn = gate.HandleInterrupt
	haltFn            = cpu.Halt

	// instructionBytesFn reads the 16 bytes starting at addr, standing in
	// for a direct pointer dereference so invalid-opcode handling can be
	// exercised without a real executable mapping at the faulting address.
	instructionBytesFn = func(addr uintptr) [16]byte {
		return *(*[16]byte)(unsafe.Pointer(addr))
	}

	errUnrecoverableTrap = &kernel.Error{Module: "trap", Message: "unrecoverable CPU exception"}
)

// Init installs every exception vector sharkos handles outside of paging:
// the traps that always panic, the invalid-opcode diagnostic handler, and
// the inert handlers for the legacy-PIC and spurious vectors. All of the
// fatal traps share the double-fault IST stack, mirroring the original
// interrupt table, since a synchronous fault may fire with a damaged
// kernel stack regardless of which vector raised it.
func Init() {
	for _, num := range [...]gate.InterruptNumber{gate.Debug, gate.NMI, gate.Breakpoint} {
		handleInterruptFn(num, gdt.DoubleFaultISTIndex, debugTrapHandler)
	}

	handleInterruptFn(gate.DoubleFault, gdt.DoubleFaultISTIndex, fatalTrapHandler("double fault"))
	handleInterruptFn(gate.DivideByZero, gdt.DoubleFaultISTIndex, fatalTrapHandler("divide error"))
	handleInterruptFn(gate.Overflow, gdt.DoubleFaultISTIndex, fatalTrapHandler("overflow"))
	handleInterruptFn(gate.BoundRangeExceeded, gdt.DoubleFaultISTIndex, fatalTrapHandler("bound range exceeded"))
	handleInterruptFn(gate.InvalidTSS, gdt.DoubleFaultISTIndex, fatalTrapHandler("invalid TSS"))
	handleInterruptFn(gate.SegmentNotPresent, gdt.DoubleFaultISTIndex, fatalTrapHandler("segment not present"))
	handleInterruptFn(gate.StackSegmentFault, gdt.DoubleFaultISTIndex, fatalTrapHandler("stack segment fault"))
	handleInterruptFn(gate.DeviceNotAvailable, gdt.DoubleFaultISTIndex, fatalTrapHandler("device not available"))

	handleInterruptFn(gate.InvalidOpcode, gdt.DoubleFaultISTIndex, invalidOpcodeHandler)

	handleInterruptFn(gate.LegacyPICError, 0, inertHandler)
	handleInterruptFn(gate.Spurious, 0, inertHandler)
}

// debugTrapHandler backs the breakpoint, debug and NMI vectors, which all
// share one handler: none of the three is ever expected in normal
// operation, so all three just dump state and panic.
func debugTrapHandler(regs *gate.Registers) {
	kfmt.Printf("\nbreakpoint/debug/NMI trap\nRegisters:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	panic(errUnrecoverableTrap)
}

// fatalTrapHandler returns a handler that prints name and the register
// frame, then panics. None of these faults are recoverable: sharkos has no
// fault-recovery story beyond demand-mapping kernel-heap growth.
func fatalTrapHandler(name string) func(*gate.Registers) {
	return func(regs *gate.Registers) {
		kfmt.Printf("\n%s\nRegisters:\n", name)
		regs.DumpTo(kfmt.GetOutputSink())

		panic(errUnrecoverableTrap)
	}
}

// invalidOpcodeHandler does not panic: it prints the faulting instruction
// pointer and the 16 bytes found there for offline diagnosis, then halts.
func invalidOpcodeHandler(regs *gate.Registers) {
	kfmt.Printf("\nInvalid opcode at 0x%x\n", regs.RIP)

	instr := instructionBytesFn(uintptr(regs.RIP))
	for i, b := range instr {
		if i > 0 {
			kfmt.Printf(" ")
		}
		kfmt.Printf("%x", b)
	}
	kfmt.Printf("\n")

	haltFn()
}

// inertHandler backs vectors sharkos never expects to matter (a legacy PIC
// left unmasked by firmware, or a LAPIC that could not resolve the source
// of an interrupt) and does nothing.
func inertHandler(regs *gate.Registers) {}
