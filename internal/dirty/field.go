package dirty

import "math"

// Equaler is implemented by value types that define their own equality.
// Types holding floats implement it with bit-for-bit comparison.
type Equaler[T any] interface {
	Equal(T) bool
}

// Float32Equal compares two floats bit for bit, so -0 differs from +0 and
// a NaN equals the identical NaN.
func Float32Equal(a, b float32) bool { return math.Float32bits(a) == math.Float32bits(b) }

// Float64Equal is the float64 form of Float32Equal.
func Float64Equal(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }

func comparableEqual[T comparable](a, b T) bool { return a == b }

func equalerEqual[T Equaler[T]](a, b T) bool { return a.Equal(b) }

// Field is one diff-tracked state value bound to a dirty bit.
type Field[T any] struct {
	bit Bit
	eq  func(a, b T) bool
	def T
	v   T
}

// NewField creates a field compared with ==.
func NewField[T comparable](bit Bit, def T) Field[T] {
	return Field[T]{bit: bit, eq: comparableEqual[T], def: def, v: def}
}

// NewFieldEq creates a field compared with T.Equal.
func NewFieldEq[T Equaler[T]](bit Bit, def T) Field[T] {
	return Field[T]{bit: bit, eq: equalerEqual[T], def: def, v: def}
}

// NewFieldFunc creates a field compared with eq.
func NewFieldFunc[T any](bit Bit, def T, eq func(a, b T) bool) Field[T] {
	return Field[T]{bit: bit, eq: eq, def: def, v: def}
}

// Get returns the current value.
func (f *Field[T]) Get() T { return f.v }

// Bit returns the bound dirty bit.
func (f *Field[T]) Bit() Bit { return f.bit }

// Set stores v and marks the bit if v differs from the current value.
// It reports whether the value changed.
func (f *Field[T]) Set(t *Tracker, v T) bool {
	if f.eq(f.v, v) {
		return false
	}
	f.v = v
	t.Mark(f.bit)
	return true
}

// Reset restores the default without marking anything.
func (f *Field[T]) Reset() { f.v = f.def }

// List is a diff-tracked, bounded array of values bound to one dirty bit.
// The valid count is part of the value: changing it alone dirties the bit.
type List[T any] struct {
	bit   Bit
	eq    func(a, b T) bool
	def   T
	items []T
	n     int
}

// NewList creates a list of up to capacity elements compared with ==.
func NewList[T comparable](bit Bit, capacity int, def T) List[T] {
	return newList(bit, capacity, def, comparableEqual[T])
}

// NewListEq creates a list compared with T.Equal.
func NewListEq[T Equaler[T]](bit Bit, capacity int, def T) List[T] {
	return newList(bit, capacity, def, equalerEqual[T])
}

func newList[T any](bit Bit, capacity int, def T, eq func(a, b T) bool) List[T] {
	l := List[T]{bit: bit, eq: eq, def: def, items: make([]T, capacity)}
	l.Reset()
	return l
}

// Cap returns the maximum number of elements.
func (l *List[T]) Cap() int { return len(l.items) }

// Len returns the number of valid elements.
func (l *List[T]) Len() int { return l.n }

// At returns element i. Elements beyond Len hold their default.
func (l *List[T]) At(i int) T { return l.items[i] }

// Slice returns the valid elements. The slice aliases the list.
func (l *List[T]) Slice() []T { return l.items[:l.n] }

// Bit returns the bound dirty bit.
func (l *List[T]) Bit() Bit { return l.bit }

// Set replaces the list with vs, truncated to Cap, and marks the bit if the
// count or any element changed.
func (l *List[T]) Set(t *Tracker, vs []T) bool {
	if len(vs) > len(l.items) {
		vs = vs[:len(l.items)]
	}
	changed := len(vs) != l.n
	for i, v := range vs {
		if !l.eq(l.items[i], v) {
			l.items[i] = v
			changed = true
		}
	}
	for i := len(vs); i < l.n; i++ {
		l.items[i] = l.def
	}
	l.n = len(vs)
	if changed {
		t.Mark(l.bit)
	}
	return changed
}

// SetRange overwrites elements starting at first. The count grows to cover
// the range and never shrinks.
func (l *List[T]) SetRange(t *Tracker, first int, vs []T) bool {
	if first < 0 || first >= len(l.items) {
		return false
	}
	if first+len(vs) > len(l.items) {
		vs = vs[:len(l.items)-first]
	}
	changed := false
	if end := first + len(vs); end > l.n {
		l.n = end
		changed = true
	}
	for i, v := range vs {
		if !l.eq(l.items[first+i], v) {
			l.items[first+i] = v
			changed = true
		}
	}
	if changed {
		t.Mark(l.bit)
	}
	return changed
}

// Fill sets every element in [0, Cap) to v and the count to Cap.
func (l *List[T]) Fill(t *Tracker, v T) bool {
	changed := l.n != len(l.items)
	for i := range l.items {
		if !l.eq(l.items[i], v) {
			l.items[i] = v
			changed = true
		}
	}
	l.n = len(l.items)
	if changed {
		t.Mark(l.bit)
	}
	return changed
}

// Reset restores every element to the default and the count to zero
// without marking anything.
func (l *List[T]) Reset() {
	for i := range l.items {
		l.items[i] = l.def
	}
	l.n = 0
}
