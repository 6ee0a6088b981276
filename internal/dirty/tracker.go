package dirty

// Tracker holds the set of dirty bits for one encoder.
// The zero value has nothing dirty.
type Tracker struct {
	dirty Mask
}

// Mark sets b and everything b propagates to.
func (t *Tracker) Mark(b Bit) {
	t.dirty = t.dirty.Or(closure[b])
}

// MarkMask marks every bit in m, with propagation.
func (t *Tracker) MarkMask(m Mask) {
	m.Each(t.Mark)
}

// MarkAll sets every bit.
func (t *Tracker) MarkAll() {
	t.dirty = All()
}

// Dirty returns the current dirty set.
func (t *Tracker) Dirty() Mask { return t.dirty }

// IsDirty reports whether b is dirty.
func (t *Tracker) IsDirty(b Bit) bool { return t.dirty.Has(b) }

// Consume returns the dirty bits within category and clears exactly those.
func (t *Tracker) Consume(category Mask) Mask {
	got := t.dirty.And(category)
	t.dirty = t.dirty.AndNot(got)
	return got
}

// Reset clears every bit.
func (t *Tracker) Reset() { t.dirty = Mask{} }
