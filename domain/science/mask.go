package science

import (
	"stixdc/domain/core"
	"stixdc/domain/instrument"
)

// Mask flags the enabled energy channels of a frame.
type Mask [instrument.NumEnergies]bool

// MaskFromInts builds a mask from the 0/1 vector stored in control data.
func MaskFromInts(v []int) (Mask, error) {
	var m Mask
	if len(v) != instrument.NumEnergies {
		return m, core.NewShapeError("energy_bin_mask", len(v), instrument.NumEnergies)
	}
	for i, x := range v {
		m[i] = x != 0
	}
	return m, nil
}

// FullMask enables every channel.
func FullMask() Mask {
	var m Mask
	for i := range m {
		m[i] = true
	}
	return m
}

// RangeMask enables channels lo..hi inclusive.
func RangeMask(lo, hi int) Mask {
	var m Mask
	for i := lo; i <= hi && i < instrument.NumEnergies; i++ {
		if i >= 0 {
			m[i] = true
		}
	}
	return m
}

// Covers reports whether every channel enabled in other is enabled in m.
func (m Mask) Covers(other Mask) bool {
	for i := range m {
		if other[i] && !m[i] {
			return false
		}
	}
	return true
}

// Count returns the number of enabled channels.
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Floats returns 1 for enabled channels and 0 otherwise.
func (m Mask) Floats() [instrument.NumEnergies]float64 {
	var out [instrument.NumEnergies]float64
	for i, b := range m {
		if b {
			out[i] = 1
		}
	}
	return out
}

// Range returns the lowest and highest enabled channel.
func (m Mask) Range() (int, int, error) {
	lo, hi := -1, -1
	for i, b := range m {
		if !b {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	if lo < 0 {
		return 0, 0, core.ErrEmptyMask
	}
	return lo, hi, nil
}
