package syscall

import (
	"bytes"
	"sharkos/kernel/gdt"
	"sharkos/kernel/kfmt"
	"testing"
	"unsafe"
)

func TestInitProgramsMSRs(t *testing.T) {
	defer func() {
		readMSRFn = nil
		writeMSRFn = nil
		entryAddr = nil
	}()

	gdt.Selectors.Code = 1 << 3
	gdt.Selectors.UserCode = 4<<3 | 3

	written := map[uint32]uint64{}
	writeMSRFn = func(ecx uint32, val uint64) { written[ecx] = val }
	readMSRFn = func(ecx uint32) uint64 { return 0 }
	entryAddr = func() uint64 { return 0x1000 }

	Init()

	if written[msrLSTAR] != 0x1000 {
		t.Fatalf("expected LSTAR to be programmed with the entry address; got 0x%x", written[msrLSTAR])
	}
	if written[msrSFMask] != rflagsIF {
		t.Fatalf("expected SFMASK to mask the interrupt flag; got 0x%x", written[msrSFMask])
	}
	if written[msrEFER]&eferSCE == 0 {
		t.Fatal("expected EFER.SCE to be set")
	}
}

func TestDispatchWrite(t *testing.T) {
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	payload := []byte("hi")
	Dispatch(uint64(uintptr(unsafe.Pointer(&payload[0]))), uint64(len(payload)), 0, 0, 0, 0, SysWrite)

	if got := buf.String(); got != "hi" {
		t.Fatalf("expected the write syscall to print %q; got %q", "hi", got)
	}
}

func TestDispatchExit(t *testing.T) {
	defer func() { exitFn = nil }()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	halted := false
	exitFn = func(code uint64) { halted = true }

	Dispatch(7, 0, 0, 0, 0, 0, SysExit)

	if !halted {
		t.Fatal("expected the exit syscall to invoke exitFn")
	}
}

func TestDispatchUnknownPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != errUnknownSyscall {
			t.Fatalf("expected a panic with errUnknownSyscall; got %v", r)
		}
	}()

	Dispatch(0, 0, 0, 0, 0, 0, 99)
}
