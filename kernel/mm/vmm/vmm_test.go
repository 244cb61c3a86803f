package vmm

import (
	"sharkos/kernel/gate"
	"sharkos/kernel/mm"
	"testing"
)

func TestInit(t *testing.T) {
	defer func() {
		activePDTFn = nil
		handleInterruptFn = nil
		kernelTop = 0
	}()

	activePDTFn = func() uintptr { return mm.Frame(5).Address() }

	installedCount := 0
	handleInterruptFn = func(_ gate.InterruptNumber, _ uint8, _ func(*gate.Registers)) {
		installedCount++
	}

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	if kernelTop != mm.Frame(5) {
		t.Fatalf("expected kernelTop to be captured as frame 5; got %v", kernelTop)
	}

	if installedCount != 2 {
		t.Fatalf("expected two fault handlers to be installed; got %d", installedCount)
	}
}

func TestPhysAddr(t *testing.T) {
	frame := mm.Frame(123)
	if got, exp := PhysAddr(frame), frame.Address(); got != exp {
		t.Fatalf("expected 0x%x; got 0x%x", exp, got)
	}
}
