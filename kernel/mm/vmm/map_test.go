package vmm

import (
	"sharkos/kernel"
	"sharkos/kernel/mm"
	"testing"
)

func TestCreateMapping(t *testing.T) {
	defer func() {
		mm.SetFrameAllocator(nil)
		flushTLBEntryFn = nil
	}()

	var tables backingTables
	var nextLevel = 1

	mm.SetFrameAllocator(func() (mm.Frame, *kernel.Error) {
		f := tables.frame(nextLevel)
		nextLevel++
		return f, nil
	})

	flushCount := 0
	flushTLBEntryFn = func(uintptr) { flushCount++ }

	top := Table{frame: tables.frame(0)}
	physAddr := mm.Frame(999).Address()

	if err := CreateMapping(top, 0, physAddr, FlagRW); err != nil {
		t.Fatal(err)
	}

	for level := 0; level < pageLevels-1; level++ {
		if !tables.levels[level][0].HasFlags(FlagPresent | FlagRW) {
			t.Errorf("[level %d] expected interior entry to be present and writable", level)
		}
	}

	leaf := tables.levels[pageLevels-1][0]
	if !leaf.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected leaf entry to be present and writable")
	}
	if got := leaf.Frame(); got != mm.FrameFromAddress(physAddr) {
		t.Fatalf("expected leaf frame %v; got %v", mm.FrameFromAddress(physAddr), got)
	}

	if flushCount != 1 {
		t.Fatalf("expected flushTLBEntryFn to be called once; got %d", flushCount)
	}
}

func TestCreateMappingAlreadyPresentPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != errAlreadyMapped {
			t.Fatalf("expected panic with errAlreadyMapped; got %v", r)
		}
	}()

	var tables backingTables
	for level := 0; level < pageLevels-1; level++ {
		tables.levels[level][0].SetFlags(FlagPresent | FlagRW)
		tables.levels[level][0].SetFrame(tables.frame(level + 1))
	}
	tables.levels[pageLevels-1][0].SetFlags(FlagPresent)

	top := Table{frame: tables.frame(0)}
	CreateMapping(top, 0, mm.Frame(1).Address(), FlagRW)
}

func TestCreateMappingHugePage(t *testing.T) {
	var tables backingTables
	tables.levels[0][0].SetFlags(FlagPresent | FlagHugePage)
	tables.levels[0][0].SetFrame(tables.frame(1))

	top := Table{frame: tables.frame(0)}

	if err := CreateMapping(top, 0, mm.Frame(1).Address(), FlagRW); err != errNoHugePageSupport {
		t.Fatalf("expected errNoHugePageSupport; got %v", err)
	}
}

func TestCreateMappingAllocFails(t *testing.T) {
	defer mm.SetFrameAllocator(nil)

	expErr := &kernel.Error{Module: "test", Message: "exhausted"}
	mm.SetFrameAllocator(func() (mm.Frame, *kernel.Error) { return mm.InvalidFrame, expErr })

	var tables backingTables
	top := Table{frame: tables.frame(0)}

	if err := CreateMapping(top, 0, mm.Frame(1).Address(), FlagRW); err != expErr {
		t.Fatalf("expected %v; got %v", expErr, err)
	}
}

func TestUnmap(t *testing.T) {
	defer func() { flushTLBEntryFn = nil }()

	var tables backingTables
	for level := 0; level < pageLevels-1; level++ {
		tables.levels[level][0].SetFlags(FlagPresent)
		tables.levels[level][0].SetFrame(tables.frame(level + 1))
	}
	tables.levels[pageLevels-1][0].SetFlags(FlagPresent | FlagRW)
	tables.levels[pageLevels-1][0].SetFrame(mm.Frame(321))

	flushCount := 0
	flushTLBEntryFn = func(uintptr) { flushCount++ }

	top := Table{frame: tables.frame(0)}
	if err := Unmap(top, 0); err != nil {
		t.Fatal(err)
	}

	leaf := tables.levels[pageLevels-1][0]
	if leaf.HasFlags(FlagPresent) {
		t.Fatal("expected leaf entry to no longer be present")
	}
	if got := leaf.Frame(); got != mm.Frame(321) {
		t.Fatal("expected Unmap to leave the frame field intact")
	}
	if flushCount != 1 {
		t.Fatalf("expected flushTLBEntryFn to be called once; got %d", flushCount)
	}
}

func TestUnmapNotPresent(t *testing.T) {
	var tables backingTables
	top := Table{frame: tables.frame(0)}

	if err := Unmap(top, 0); err != ErrInvalidMapping {
		t.Fatalf("expected ErrInvalidMapping; got %v", err)
	}
}

func TestUnmapHugePage(t *testing.T) {
	var tables backingTables
	tables.levels[0][0].SetFlags(FlagPresent | FlagHugePage)

	top := Table{frame: tables.frame(0)}

	if err := Unmap(top, 0); err != errNoHugePageSupport {
		t.Fatalf("expected errNoHugePageSupport; got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	var tables backingTables
	for level := 0; level < pageLevels-1; level++ {
		tables.levels[level][0].SetFlags(FlagPresent)
		tables.levels[level][0].SetFrame(tables.frame(level + 1))
	}
	tables.levels[pageLevels-1][0].SetFlags(FlagPresent)
	tables.levels[pageLevels-1][0].SetFrame(mm.Frame(77))

	top := Table{frame: tables.frame(0)}

	virtAddr := uintptr(0x123)
	physAddr, err := Translate(top, virtAddr)
	if err != nil {
		t.Fatal(err)
	}

	if exp := mm.Frame(77).Address() + 0x123; physAddr != exp {
		t.Fatalf("expected physical address 0x%x; got 0x%x", exp, physAddr)
	}
}

func TestTranslateNotMapped(t *testing.T) {
	var tables backingTables
	top := Table{frame: tables.frame(0)}

	if _, err := Translate(top, 0); err != ErrInvalidMapping {
		t.Fatalf("expected ErrInvalidMapping; got %v", err)
	}
}

func TestPageOffset(t *testing.T) {
	specs := []struct {
		addr uintptr
		exp  uintptr
	}{
		{0, 0},
		{4095, 4095},
		{4096, 0},
		{4096 + 42, 42},
	}

	for i, spec := range specs {
		if got := PageOffset(spec.addr); got != spec.exp {
			t.Errorf("[spec %d] expected page offset %d; got %d", i, spec.exp, got)
		}
	}
}
