package mem

import "testing"

func TestAllocExhaustion(t *testing.T) {
	a := New(2)
	p1, ok := a.Alloc()
	if !ok {
		t.Fatalf("first alloc failed")
	}
	p2, ok := a.Alloc()
	if !ok || p2 == p1 {
		t.Fatalf("second alloc: ok=%v same=%v", ok, p2 == p1)
	}
	if _, ok := a.Alloc(); ok {
		t.Fatalf("alloc past capacity succeeded")
	}
	if err := a.Free(p1); err != nil {
		t.Fatalf("free: %v", err)
	}
	if got := a.Available(); got != 1 {
		t.Fatalf("available=%d, want 1", got)
	}
	p3, ok := a.Alloc()
	if !ok || p3 != p1 {
		t.Fatalf("realloc: ok=%v reused=%v", ok, p3 == p1)
	}
}

func TestFreeJunkAndZero(t *testing.T) {
	a := New(1)
	p, _ := a.Alloc()
	p.Data[0] = 42
	if err := a.Free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
	if p.Data[0] != junk || p.Data[PageSize-1] != junk {
		t.Fatalf("freed page not junk-filled")
	}
	p, _ = a.Alloc()
	if p.Data[0] != 0 {
		t.Fatalf("allocated page not zeroed")
	}
}

func TestFreeErrors(t *testing.T) {
	a := New(1)
	b := New(1)
	p, _ := a.Alloc()
	if err := b.Free(p); err != ErrForeign {
		t.Fatalf("foreign free err=%v", err)
	}
	if err := a.Free(nil); err != ErrForeign {
		t.Fatalf("nil free err=%v", err)
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
	if err := a.Free(p); err != ErrDoubleFree {
		t.Fatalf("double free err=%v", err)
	}
}
