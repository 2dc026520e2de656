package autosched

import "testing"

func TestLayoutOffsets(t *testing.T) {
	l := NewLayout(2, []int{3, 1})
	if l.TotalSize() != 2+2+3+1 {
		t.Fatalf("total size = %d, want 8", l.TotalSize())
	}

	b := l.Make()
	defer l.Release(b)

	// Write through every accessor, then check nothing aliased.
	*b.RegionRequired(0) = NewSpan(0, 9, true)
	*b.RegionRequired(1) = NewSpan(1, 4, true)
	*b.RegionComputed(0) = NewSpan(-1, 10, false)
	*b.RegionComputed(1) = NewSpan(1, 4, true)
	*b.Loops(0, 0) = NewSpan(0, 7, true)
	*b.Loops(0, 2) = NewSpan(5, 6, true)
	*b.Loops(1, 0) = NewSpan(2, 3, false)

	if b.RegionRequired(0).Max() != 9 || b.RegionComputed(0).Min() != -1 {
		t.Errorf("regions aliased")
	}
	if b.Loops(0, 2).Min() != 5 || b.Loops(1, 0).Min() != 2 {
		t.Errorf("loop spans aliased")
	}
}

func TestLayoutPoolReuse(t *testing.T) {
	l := NewLayout(1, []int{1})

	a := l.Make()
	if l.NumLive() != 1 {
		t.Fatalf("num live = %d, want 1", l.NumLive())
	}
	l.Release(a)
	if l.NumLive() != 0 {
		t.Fatalf("num live = %d, want 0", l.NumLive())
	}

	b := l.Make()
	if b != a {
		t.Errorf("pool should hand back the released entry")
	}
	l.Release(b)
}

func TestLayoutGrowth(t *testing.T) {
	l := NewLayout(1, nil)
	live := make([]*BoundContents, 0, 100)
	for i := 0; i < 100; i++ {
		live = append(live, l.Make())
	}
	if l.NumLive() != 100 {
		t.Fatalf("num live = %d, want 100", l.NumLive())
	}
	// Every entry is distinct.
	seen := map[*BoundContents]bool{}
	for _, b := range live {
		if seen[b] {
			t.Fatalf("pool handed out the same entry twice")
		}
		seen[b] = true
	}
	for _, b := range live {
		l.Release(b)
	}
}

func TestMakeCopyDoesNotShare(t *testing.T) {
	l := NewLayout(1, nil)
	a := l.Make()
	*a.RegionRequired(0) = NewSpan(1, 2, true)

	c := a.MakeCopy()
	if c == a {
		t.Fatalf("copy shares the pool entry")
	}
	if c.RegionRequired(0).Min() != 1 || c.RegionRequired(0).Max() != 2 {
		t.Errorf("copy did not take the span data")
	}
	*c.RegionRequired(0) = NewSpan(5, 6, true)
	if a.RegionRequired(0).Min() != 1 {
		t.Errorf("mutating the copy changed the original")
	}
	l.Release(a)
	l.Release(c)
}

func TestReleaseToWrongLayoutPanics(t *testing.T) {
	l1 := NewLayout(1, nil)
	l2 := NewLayout(1, nil)
	b := l1.Make()
	defer func() {
		if recover() == nil {
			t.Errorf("releasing to the wrong layout should panic")
		}
		l1.Release(b)
	}()
	l2.Release(b)
}

func TestReleaseWithNoLivePanics(t *testing.T) {
	l := NewLayout(1, nil)
	b := l.Make()
	l.Release(b)
	defer func() {
		if recover() == nil {
			t.Errorf("double release should panic")
		}
	}()
	l.Release(b)
}
