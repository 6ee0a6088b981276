package regcache

import "testing"

type write struct{ id, v uint32 }

func recorder(out *[]write) func(id, v uint32) {
	return func(id, v uint32) { *out = append(*out, write{id, v}) }
}

func TestEmitIfChanged(t *testing.T) {
	c := New(128)
	var got []write
	emit := recorder(&got)

	c.EmitIfChanged(5, 10, emit) // unknown: emitted
	c.EmitIfChanged(5, 10, emit) // same: skipped
	c.EmitIfChanged(5, 11, emit) // changed: emitted
	c.EmitIfChanged(70, 0, emit) // unknown zero: emitted

	want := []write{{5, 10}, {5, 11}, {70, 0}}
	if len(got) != len(want) {
		t.Fatalf("writes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %v, want %v", i, got[i], want[i])
		}
	}
	if st := c.Stats(); st.Hits != 1 || st.Misses != 3 {
		t.Errorf("Stats = %+v, want 1 hit / 3 misses", st)
	}
}

func TestInvalidate(t *testing.T) {
	c := New(64)
	var got []write
	emit := recorder(&got)

	c.EmitIfChanged(1, 1, emit)
	c.EmitIfChanged(2, 2, emit)
	if c.KnownCount() != 2 {
		t.Fatalf("KnownCount = %d, want 2", c.KnownCount())
	}

	c.Invalidate(1)
	if _, ok := c.Lookup(1); ok {
		t.Error("register 1 still known after Invalidate")
	}
	if v, ok := c.Lookup(2); !ok || v != 2 {
		t.Errorf("Lookup(2) = %d, %v", v, ok)
	}

	c.InvalidateAll()
	got = got[:0]
	c.EmitIfChanged(2, 2, emit)
	if len(got) != 1 {
		t.Error("InvalidateAll did not force re-emission")
	}
}

func TestEmitSeqIfChanged(t *testing.T) {
	c := New(32)
	calls := 0
	var last []uint32
	emit := func(base uint32, vs []uint32) {
		calls++
		last = append(last[:0], vs...)
	}

	c.EmitSeqIfChanged(4, []uint32{1, 2, 3}, emit)
	c.EmitSeqIfChanged(4, []uint32{1, 2, 3}, emit)
	if calls != 1 {
		t.Fatalf("identical run emitted %d times, want 1", calls)
	}

	// One differing element re-emits the whole run.
	c.EmitSeqIfChanged(4, []uint32{1, 9, 3}, emit)
	if calls != 2 || len(last) != 3 || last[1] != 9 {
		t.Errorf("calls=%d last=%v", calls, last)
	}

	// A run that extends past known registers is emitted.
	c.EmitSeqIfChanged(4, []uint32{1, 9, 3, 4}, emit)
	if calls != 3 {
		t.Errorf("extended run not emitted")
	}
}

func TestOutOfRange(t *testing.T) {
	c := New(4)
	n := 0
	emit := func(uint32, uint32) { n++ }
	c.EmitIfChanged(100, 1, emit)
	c.EmitIfChanged(100, 1, emit)
	if n != 2 {
		t.Errorf("untracked register emitted %d times, want 2", n)
	}
	c.Invalidate(100) // must not panic
}
