package vmm

import (
	"bytes"
	"sharkos/kernel/gate"
	"sharkos/kernel/kfmt"
	"testing"
)

func TestInstallFaultHandlers(t *testing.T) {
	defer func() { handleInterruptFn = nil }()

	var installed []gate.InterruptNumber
	handleInterruptFn = func(num gate.InterruptNumber, _ uint8, _ func(*gate.Registers)) {
		installed = append(installed, num)
	}

	installFaultHandlers()

	if len(installed) != 2 || installed[0] != gate.PageFaultException || installed[1] != gate.GPFException {
		t.Fatalf("expected page-fault and GPF handlers to be installed; got %v", installed)
	}
}

func TestPageFaultHandlerPanics(t *testing.T) {
	defer func() {
		readCR2Fn = nil
		if r := recover(); r != errUnrecoverableFault {
			t.Fatalf("expected panic with errUnrecoverableFault; got %v", r)
		}
	}()

	readCR2Fn = func() uint64 { return 0xdeadbeef }

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	pageFaultHandler(&gate.Registers{Info: 2})
}

func TestGeneralProtectionFaultHandlerPanics(t *testing.T) {
	defer func() {
		readCR2Fn = nil
		if r := recover(); r != errUnrecoverableFault {
			t.Fatalf("expected panic with errUnrecoverableFault; got %v", r)
		}
	}()

	readCR2Fn = func() uint64 { return 0 }

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	generalProtectionFaultHandler(&gate.Registers{})
}
