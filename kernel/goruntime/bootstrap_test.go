package goruntime

import (
	"reflect"
	"sharkos/kernel"
	"sharkos/kernel/mm"
	"testing"
	"unsafe"
)

func TestSysReserve(t *testing.T) {
	defer func() {
		allocateFn = nilAllocate
		growFn = nilGrow
	}()

	t.Run("success, single page", func(t *testing.T) {
		var reserved bool

		allocateFn = func() (uintptr, *kernel.Error) { return 0x1000, nil }
		growFn = func(_ uintptr, _, _ uintptr) (uintptr, *kernel.Error) {
			t.Fatal("unexpected call to growFn for a single-page request")
			return 0, nil
		}

		if got := sysReserve(nil, mm.PageSize, &reserved); uintptr(got) != 0x1000 {
			t.Fatalf("expected 0x1000; got 0x%x", uintptr(got))
		}
		if !reserved {
			t.Fatal("expected reserved to be set to true")
		}
	})

	t.Run("success, multi page grows the allocation", func(t *testing.T) {
		var reserved bool
		growCallCount := 0

		allocateFn = func() (uintptr, *kernel.Error) { return 0x1000, nil }
		growFn = func(ptr, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
			growCallCount++
			return ptr, nil
		}

		if got := sysReserve(nil, 4*mm.PageSize, &reserved); uintptr(got) != 0x1000 {
			t.Fatalf("expected 0x1000; got 0x%x", uintptr(got))
		}
		if growCallCount != 1 {
			t.Fatalf("expected growFn to be called once; got %d", growCallCount)
		}
	})

	t.Run("allocate fails", func(t *testing.T) {
		defer func() {
			if err := recover(); err == nil {
				t.Fatal("expected sysReserve to panic")
			}
		}()

		var reserved bool
		allocateFn = func() (uintptr, *kernel.Error) {
			return 0, &kernel.Error{Module: "test", Message: "exhausted"}
		}

		sysReserve(nil, mm.PageSize, &reserved)
	})
}

func TestSysMap(t *testing.T) {
	defer func() { growFn = nilGrow }()

	t.Run("success", func(t *testing.T) {
		var sysStat uint64
		growFn = func(ptr, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
			return ptr, nil
		}

		got := sysMap(unsafe.Pointer(uintptr(0x2000)), mm.PageSize, true, &sysStat)
		if uintptr(got) != 0x2000 {
			t.Fatalf("expected 0x2000; got 0x%x", uintptr(got))
		}
		if sysStat != uint64(mm.PageSize) {
			t.Fatalf("expected stat counter to be %d; got %d", mm.PageSize, sysStat)
		}
	})

	t.Run("grow fails", func(t *testing.T) {
		var sysStat uint64
		growFn = func(ptr, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
			return 0, &kernel.Error{Module: "test", Message: "grow failed"}
		}

		if got := sysMap(unsafe.Pointer(uintptr(0x2000)), mm.PageSize, true, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysMap to return 0x0 on grow failure; got 0x%x", uintptr(got))
		}
	})

	t.Run("panics if not reserved", func(t *testing.T) {
		defer func() {
			if err := recover(); err == nil {
				t.Fatal("expected sysMap to panic")
			}
		}()

		sysMap(nil, 0, false, nil)
	})
}

func TestSysAlloc(t *testing.T) {
	defer func() {
		allocateFn = nilAllocate
		growFn = nilGrow
	}()

	t.Run("success, single page", func(t *testing.T) {
		var sysStat uint64
		allocateFn = func() (uintptr, *kernel.Error) { return 0x3000, nil }

		got := sysAlloc(mm.PageSize, &sysStat)
		if uintptr(got) != 0x3000 {
			t.Fatalf("expected 0x3000; got 0x%x", uintptr(got))
		}
		if sysStat != uint64(mm.PageSize) {
			t.Fatalf("expected stat counter to be %d; got %d", mm.PageSize, sysStat)
		}
	})

	t.Run("allocate fails", func(t *testing.T) {
		var sysStat uint64
		allocateFn = func() (uintptr, *kernel.Error) {
			return 0, &kernel.Error{Module: "test", Message: "exhausted"}
		}

		if got := sysAlloc(mm.PageSize, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 on allocate failure; got 0x%x", uintptr(got))
		}
	})

	t.Run("grow fails", func(t *testing.T) {
		var sysStat uint64
		allocateFn = func() (uintptr, *kernel.Error) { return 0x3000, nil }
		growFn = func(ptr, oldSize, newSize uintptr) (uintptr, *kernel.Error) {
			return 0, &kernel.Error{Module: "test", Message: "grow failed"}
		}

		if got := sysAlloc(4*mm.PageSize, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 on grow failure; got 0x%x", uintptr(got))
		}
	})
}

func TestGetRandomData(t *testing.T) {
	sample1 := make([]byte, 128)
	sample2 := make([]byte, 128)

	getRandomData(sample1)
	getRandomData(sample2)

	if reflect.DeepEqual(sample1, sample2) {
		t.Fatal("expected getRandomData to return different values for each invocation")
	}
}

func TestInit(t *testing.T) {
	defer func() {
		mallocInitFn = mallocInit
		algInitFn = algInit
		modulesInitFn = modulesInit
		typeLinksInitFn = typeLinksInit
		itabsInitFn = itabsInit
	}()

	mallocInitFn = func() {}
	algInitFn = func() {}
	modulesInitFn = func() {}
	typeLinksInitFn = func() {}
	itabsInitFn = func() {}

	if err := Init(); err != nil {
		t.Fatal(err)
	}
}

func nilAllocate() (uintptr, *kernel.Error) { return 0, nil }
func nilGrow(ptr, _, _ uintptr) (uintptr, *kernel.Error) { return ptr, nil }
