package cpu

var (
	cpuidFn = ID
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}

// ReadMSR returns the 64-bit value of the model-specific register addressed
// by ecx.
func ReadMSR(ecx uint32) uint64

// WriteMSR writes val to the model-specific register addressed by ecx.
func WriteMSR(ecx uint32, val uint64)

// RDTSC returns the current value of the timestamp counter.
func RDTSC() uint64

// CoreID returns the local APIC ID of the executing core, queried via
// CPUID leaf 1 (EBX bits 31:24). sharkos never runs on more than one
// core, but the scheduler indexes its per-core state by this value so
// that adding cores later requires no change to that indexing scheme.
func CoreID() uint8 {
	_, ebx, _, _ := cpuidFn(1)
	return uint8(ebx >> 24)
}
