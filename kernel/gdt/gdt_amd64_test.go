package gdt

import "testing"

func TestKernelCodeSegmentFlags(t *testing.T) {
	d := kernelCodeSegment()
	if d&accessPresent == 0 || d&accessExecutable == 0 || d&flagsLongMode == 0 {
		t.Fatalf("expected present, executable, long-mode bits; got 0x%x", d)
	}
	if d&accessDPL3 != 0 {
		t.Fatalf("expected kernel code segment to have DPL 0; got 0x%x", d)
	}
}

func TestUserSegmentsHaveDPL3(t *testing.T) {
	if d := userCodeSegment(); d&accessDPL3 != accessDPL3 {
		t.Fatalf("expected user code segment to carry DPL 3; got 0x%x", d)
	}
	if d := userDataSegment(); d&accessDPL3 != accessDPL3 {
		t.Fatalf("expected user data segment to carry DPL 3; got 0x%x", d)
	}
}

func TestSelectorLayout(t *testing.T) {
	// Mirrors the assignment Init performs, without touching the CPU.
	code := Selector(1 << 3)
	userCode := Selector(4<<3 | 3)

	if code&0x3 != 0 {
		t.Fatal("expected the kernel code selector's RPL bits to be 0")
	}
	if userCode&0x3 != 3 {
		t.Fatal("expected the user code selector's RPL bits to be 3")
	}
}
