// Package apic drives the local APIC timer: the periodic tick that preempts
// the running process and hands control back to the scheduler.
package apic

import "unsafe"

// register offsets, relative to the LAPIC's MMIO base.
const (
	lvtTimer = 0x320
	ticr     = 0x380
	sivr     = 0x0F0
	eoi      = 0x0B0
)

// InitialCount is programmed into TICR; it is an arbitrary but fixed divisor
// of the bus clock, not calibrated against real hardware.
const InitialCount = 10_000_000

// TimerMode selects how the LVT_TIMER entry re-arms after it fires.
type TimerMode uint32

const (
	// OneShot counts down once and then stops.
	OneShot TimerMode = 0b00

	// Periodic reloads TICR and counts down again after each firing. This
	// is the only mode sharkos uses.
	Periodic TimerMode = 0b01

	// TscDeadline fires once the TSC reaches a programmed deadline.
	TscDeadline TimerMode = 0b10
)

// base is the virtual address the LAPIC's MMIO page is mapped at (kmain
// identity-maps it, so this equals its physical address). It is set once by
// Init.
var base uintptr

func writeRegister(offset uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(base + offset)) = value
}

func readRegister(offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(base + offset))
}

// Init programs the LVT_TIMER entry to raise vector 32 in periodic mode and
// loads TICR with InitialCount. mmioBase must already be mapped writable,
// uncacheable into the kernel's address space.
func Init(mmioBase uintptr) {
	base = mmioBase
	writeRegister(lvtTimer, 32|(uint32(Periodic)<<17))
	writeRegister(ticr, InitialCount)
}

// EndOfInterrupt signals the LAPIC that the current interrupt has been
// serviced. It must be called from every timer handler before returning,
// or no further timer interrupts will be delivered.
func EndOfInterrupt() {
	writeRegister(eoi, 0)
}

// EnableTimerInterrupts clears the LVT_TIMER mask bit.
func EnableTimerInterrupts() {
	writeRegister(lvtTimer, readRegister(lvtTimer) &^ (1 << 16))
}

// DisableTimerInterrupts sets the LVT_TIMER mask bit, suppressing further
// timer interrupts until EnableTimerInterrupts is called again.
func DisableTimerInterrupts() {
	writeRegister(lvtTimer, readRegister(lvtTimer)|(1<<16))
}
