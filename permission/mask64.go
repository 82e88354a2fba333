package permission

import "math/bits"

// MaxBits is the number of permissions a mask can hold.
const MaxBits = 64

// Mask64 is a set of permission bits.
type Mask64 uint64

// Has reports whether bit is set. With rootReserved, the highest bit grants
// every permission.
func (m Mask64) Has(bit int, rootReserved bool) bool {
	if bit < 0 || bit >= MaxBits {
		return false
	}
	if rootReserved && m&(1<<(MaxBits-1)) != 0 {
		return true
	}
	return m&(1<<bit) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m |= 1 << bit
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m &^= 1 << bit
}

// Bits returns the set bit positions in ascending order.
func (m Mask64) Bits() []int {
	out := make([]int, 0, bits.OnesCount64(uint64(m)))
	for v := uint64(m); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros64(v))
	}
	return out
}

func (m Mask64) Raw() uint64 {
	return uint64(m)
}
