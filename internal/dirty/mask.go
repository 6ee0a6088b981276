package dirty

import (
	"math/bits"
	"strings"
)

const maskWords = 2

// Mask is a set of Bits.
type Mask [maskWords]uint64

// MaskOf returns the set containing bs.
func MaskOf(bs ...Bit) Mask {
	var m Mask
	for _, b := range bs {
		m = m.With(b)
	}
	return m
}

// All returns the set of every defined bit.
func All() Mask {
	var m Mask
	for b := Bit(0); b < bitCount; b++ {
		m = m.With(b)
	}
	return m
}

// AllDynamic returns the set of every dynamic state bit.
func AllDynamic() Mask {
	var m Mask
	for b := Bit(0); b < dynamicCount; b++ {
		m = m.With(b)
	}
	return m
}

// Has reports whether b is in m.
func (m Mask) Has(b Bit) bool { return m[b/64]&(1<<(b%64)) != 0 }

// With returns m plus b.
func (m Mask) With(b Bit) Mask {
	m[b/64] |= 1 << (b % 64)
	return m
}

// Without returns m minus b.
func (m Mask) Without(b Bit) Mask {
	m[b/64] &^= 1 << (b % 64)
	return m
}

// Or returns the union.
func (m Mask) Or(o Mask) Mask {
	for i := range m {
		m[i] |= o[i]
	}
	return m
}

// And returns the intersection.
func (m Mask) And(o Mask) Mask {
	for i := range m {
		m[i] &= o[i]
	}
	return m
}

// AndNot returns m minus o.
func (m Mask) AndNot(o Mask) Mask {
	for i := range m {
		m[i] &^= o[i]
	}
	return m
}

// Intersects reports whether m and o share a bit.
func (m Mask) Intersects(o Mask) bool { return !m.And(o).IsZero() }

// Contains reports whether every bit of o is in m.
func (m Mask) Contains(o Mask) bool { return o.AndNot(m).IsZero() }

// IsZero reports whether m is empty.
func (m Mask) IsZero() bool { return m == Mask{} }

// Count returns the number of bits in m.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every bit in ascending order.
func (m Mask) Each(fn func(Bit)) {
	for i, w := range m {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(Bit(i*64 + tz))
			w &= w - 1
		}
	}
}

// String lists the bit names.
func (m Mask) String() string {
	if m.IsZero() {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	m.Each(func(b Bit) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(b.String())
	})
	sb.WriteByte('}')
	return sb.String()
}
