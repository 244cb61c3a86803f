// Package syscall programs the fast-syscall MSRs and dispatches the narrow
// SYSCALL/SYSRET ABI sharkos exposes to user processes: exit and write.
package syscall

import (
	"sharkos/kernel"
	"sharkos/kernel/cpu"
	"sharkos/kernel/gdt"
	"sharkos/kernel/kfmt"
	"unsafe"
)

const (
	msrEFER   = 0xC000_0080
	msrSTAR   = 0xC000_0081
	msrLSTAR  = 0xC000_0082
	msrSFMask = 0xC000_0084

	eferSCE = 1 << 0

	// rflagsIF is masked out of the caller's flags on syscall entry so
	// that nested interrupts stay disabled until the handler re-enables
	// them explicitly.
	rflagsIF = 1 << 9
)

const (
	// SysExit prints the exit code passed in the first argument register
	// and halts the CPU; the process is not torn down and no other process
	// is scheduled afterwards.
	SysExit = 0

	// SysWrite writes a buffer (pointer, length) to the console.
	SysWrite = 1
)

var errUnknownSyscall = &kernel.Error{Module: "syscall", Message: "unknown system call number"}

var (
	readMSRFn  = cpu.ReadMSR
	writeMSRFn = cpu.WriteMSR
	haltFn     = cpu.Halt

	// exitFn is invoked by the exit syscall; tests substitute a no-op so
	// dispatch can be exercised without halting the host process.
	exitFn = func(code uint64) { haltFn() }

	// entryAddr resolves to the address SYSCALL should jump to. It is
	// overridden in tests since entryTrampolineAddr is a bodyless
	// declaration with no implementation in this tree.
	entryAddr = func() uint64 { return uint64(entryTrampolineAddr()) }
)

// Init programs STAR, LSTAR and SFMASK for SYSCALL/SYSRET and sets
// EFER.SCE, the model-specific registers the CPU consults on every
// syscall/sysret instruction.
func Init() {
	star := uint64(gdt.Selectors.Code)<<32 | uint64(gdt.Selectors.UserCode-8)<<48
	writeMSRFn(msrSTAR, star)
	writeMSRFn(msrLSTAR, entryAddr())
	writeMSRFn(msrSFMask, rflagsIF)

	efer := readMSRFn(msrEFER)
	writeMSRFn(msrEFER, efer|eferSCE)
}

// entryTrampolineAddr resolves to the address of the SYSCALL entry
// trampoline (syscallEntry, below).
func entryTrampolineAddr() uintptr

// syscallEntry is the SYSCALL landing pad: it saves rcx/r11 (clobbered by
// the SYSCALL instruction itself), moves the syscall argument out of r10
// into rcx's usual argument slot, calls Dispatch, restores rcx/r11 and
// executes SYSRETQ.
func syscallEntry()

// Dispatch is invoked by syscallEntry with the six argument registers and
// the syscall number, exactly mirroring the calling convention of the
// original system_call_handler.
func Dispatch(a1, a2, a3, a4, a5, a6, code uint64) {
	switch code {
	case SysExit:
		kfmt.Printf("Process exited with code: %d\n", a1)
		exitFn(a1)
	case SysWrite:
		buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(a1))), int(a2))
		kfmt.Printf("%s", string(buf))
	default:
		panic(errUnknownSyscall)
	}
}
