// Package sched implements sharkos's preemptive, single-core process model:
// a FIFO ready queue, per-process saved register context, and the LAPIC
// timer handler that performs the actual context switch.
//
// The teacher's source this is grounded on hand-writes a naked-assembly
// resume routine that restores a saved Context and IRETQs into it. sharkos
// already has a generic equivalent: every interrupt handler receives a
// *gate.Registers holding the full register file plus the IRETQ frame, and
// the IDT dispatch trampoline restores whatever the handler leaves there
// before returning. TimerTick reuses that existing return path instead of
// hand-rolling a second one: it copies the outgoing process's state out of
// regs, then overwrites regs with the incoming process's saved state.
package sched

import (
	"sharkos/kernel"
	"sharkos/kernel/apic"
	"sharkos/kernel/cpu"
	"sharkos/kernel/exec"
	"sharkos/kernel/gate"
	"sharkos/kernel/gdt"
	"sharkos/kernel/mm"
	"sharkos/kernel/mm/vmm"
	"sharkos/kernel/sync"
)

// Context is a process's saved register state while it is not running.
// Field layout is irrelevant in this Go-level rewrite (there is no
// hand-written assembly reading it by byte offset), but the field set
// mirrors the teacher's original Context exactly.
type Context struct {
	RAX, RDI, RSI, RDX, RCX uint64
	R8, R9, R10, R11        uint64
	RSP, RIP, RFlags        uint64
}

// Process is one schedulable unit of execution: an address space, an entry
// context, and the bookkeeping the ready queue needs.
type Process struct {
	PID int

	// FastEntry records whether this process last left the CPU via a
	// syscall (and so could in principle resume via SYSRET). Scheduling
	// always resumes through the IRETQ path in this version; see
	// DESIGN.md for why the fast-resume path is provisioned but unused.
	FastEntry bool

	// Elapsed accumulates TSC cycles spent running, used only to decide
	// tie-breaks if a priority discipline is ever reintroduced.
	Elapsed uint64

	Table vmm.Table
	State Context
}

// Task is a lightweight ready-queue entry: just enough to reorder without
// touching the full Process record.
type Task struct {
	Elapsed uint64
	PID     int
}

// noCurrentThread marks a core as not yet running any process: the state
// every core starts in, until its first switch. Modeled as a sentinel PID
// rather than a separate bool so localCore() stays a single array index.
const noCurrentThread = -1

// core holds the per-core scheduling state. sharkos only ever runs one
// core, but state is still indexed by core ID so that adding a second core
// later touches no scheduling logic.
type core struct {
	threadStarted uint64
	currentThread int
	queue         []Task
}

var (
	lock      sync.Spinlock
	processes []*Process
	cores     = [1]core{{currentThread: noCurrentThread}}

	rdtscFn      = cpu.RDTSC
	coreIDFn     = cpu.CoreID
	eoiFn        = apic.EndOfInterrupt
	handleTickFn = gate.HandleInterrupt

	// activateTableFn is used by tests to override the CR3 switch that
	// normally happens as part of Table.Activate.
	activateTableFn = vmm.Table.Activate

	errNoRunnableProcess = &kernel.Error{Module: "sched", Message: "no process queued for the first switch"}
)

func localCore() *core {
	return &cores[int(coreIDFn())%len(cores)]
}

// Init installs the timer interrupt handler that drives preemption.
func Init() {
	handleTickFn(gate.Timer, gdt.InterruptStackIndex, TimerTick)
}

// Start is the Go analogue of the original scheduler's switch_process(),
// called once from kmain right before interrupts are enabled. The original
// jumps to the first process directly through a hand-written assembly
// trampoline; sharkos has no such routine (TimerTick's generic IRETQ-return
// path covers every switch, see the package doc), so Start's only job is
// to confirm there is actually a process queued to run once the first
// timer tick arrives through the cold-start path below.
func Start() *kernel.Error {
	c := localCore()

	lock.Acquire()
	defer lock.Release()

	if len(c.queue) == 0 {
		return errNoRunnableProcess
	}
	return nil
}

// Load validates and maps image as a fresh process: a cloned address space,
// its entry point and a two-page stack at stackBase, then enqueues it on
// the local core's ready queue.
func Load(image []byte, stackBase uintptr) (*Process, *kernel.Error) {
	table, err := vmm.CloneTop()
	if err != nil {
		return nil, err
	}

	entry, err := exec.Load(image, table)
	if err != nil {
		return nil, err
	}

	for i := uintptr(0); i < 2; i++ {
		frame, err := mm.AllocFrame()
		if err != nil {
			return nil, err
		}
		if err := vmm.CreateMapping(table, stackBase+i*mm.PageSize, frame.Address(), vmm.FlagRW|vmm.FlagUserAccessible); err != nil {
			return nil, err
		}
	}

	return Launch(entry, stackBase+2*mm.PageSize, table), nil
}

// initialRFlags is the RFLAGS value a new process starts with: IF (bit 9)
// set so the LAPIC timer can preempt it, plus the always-one bit 1.
const initialRFlags = 0x202

// Launch enrolls a process with the given entry point, initial stack
// pointer and address space, and enqueues it for execution.
func Launch(entry, sp uintptr, table vmm.Table) *Process {
	lock.Acquire()
	defer lock.Release()

	pid := len(processes)
	p := &Process{
		PID:       pid,
		FastEntry: true,
		Table:     table,
		State:     Context{RSP: uint64(sp), RIP: uint64(entry), RFlags: initialRFlags},
	}
	processes = append(processes, p)

	c := localCore()
	c.queue = append(c.queue, Task{PID: pid})
	return p
}

// requeueActive charges the outgoing process for the cycles it just used
// and appends it to the back of the ready queue.
func requeueActive(c *core) {
	lock.Acquire()
	defer lock.Release()

	p := processes[c.currentThread]
	p.FastEntry = false
	p.Elapsed += rdtscFn() - c.threadStarted

	c.queue = append(c.queue, Task{Elapsed: p.Elapsed, PID: p.PID})
}

// pickNext pops the next task from the front of the ready queue: plain
// FIFO, giving every enqueued process an equal turn (round-robin).
func pickNext(c *core) int {
	next := c.queue[0]
	c.queue = c.queue[1:]
	return next.PID
}

func contextFromRegs(regs *gate.Registers) Context {
	return Context{
		RAX: regs.RAX, RDI: regs.RDI, RSI: regs.RSI, RDX: regs.RDX, RCX: regs.RCX,
		R8: regs.R8, R9: regs.R9, R10: regs.R10, R11: regs.R11,
		RSP: regs.RSP, RIP: regs.RIP, RFlags: regs.RFlags,
	}
}

func writeContextToRegs(regs *gate.Registers, ctx Context) {
	regs.RAX, regs.RDI, regs.RSI, regs.RDX, regs.RCX = ctx.RAX, ctx.RDI, ctx.RSI, ctx.RDX, ctx.RCX
	regs.R8, regs.R9, regs.R10, regs.R11 = ctx.R8, ctx.R9, ctx.R10, ctx.R11
	regs.RSP, regs.RIP, regs.RFlags = ctx.RSP, ctx.RIP, ctx.RFlags
	regs.CS, regs.SS = uint64(gdt.Selectors.UserCode), uint64(gdt.Selectors.UserData)
}

// TimerTick is installed as the handler for the LAPIC timer vector. It
// saves the interrupted process's register state, requeues it, activates
// the next process's address space, and overwrites regs with that
// process's saved state so the interrupt dispatcher's own IRETQ resumes
// execution there.
//
// On a core's very first tick, currentThread is still noCurrentThread: the
// interrupted context belongs to nothing this scheduler launched, so there
// is nothing to save or requeue, and pickNext alone selects the first
// process to run.
func TimerTick(regs *gate.Registers) {
	c := localCore()

	if c.currentThread != noCurrentThread {
		lock.Acquire()
		processes[c.currentThread].State = contextFromRegs(regs)
		lock.Release()

		requeueActive(c)
	}

	lock.Acquire()
	next := pickNext(c)
	c.currentThread = next
	p := processes[next]
	lock.Release()

	c.threadStarted = rdtscFn()
	eoiFn()
	activateTableFn(p.Table)
	writeContextToRegs(regs, p.State)
}
