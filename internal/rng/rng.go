// Package rng is the Park-Miller "minimal standard" generator (the C++
// minstd_rand). It is small and deterministic across platforms, which keeps
// training runs reproducible from a seed.
package rng

const (
	multiplier = 48271
	modulus    = 2147483647
)

// Minstd is a multiplicative linear congruential generator. The zero value
// behaves like seed 1.
type Minstd struct {
	x uint32
}

// New seeds a generator. Seeds congruent to 0 are replaced by 1.
func New(seed uint32) *Minstd {
	r := &Minstd{}
	r.Seed(seed)
	return r
}

func (r *Minstd) Seed(seed uint32) {
	r.x = seed % modulus
	if r.x == 0 {
		r.x = 1
	}
}

// Uint32 returns the next value in [1, 2^31-2].
func (r *Minstd) Uint32() uint32 {
	if r.x == 0 {
		r.x = 1
	}
	r.x = uint32(uint64(r.x) * multiplier % modulus)
	return r.x
}

// Intn returns a value in [lo, hi). It returns lo when the range is empty.
func (r *Minstd) Intn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(uint64(r.Uint32())%uint64(hi-lo))
}

// Float returns a value in [lo, hi).
func (r *Minstd) Float(lo, hi float32) float32 {
	u := float64(r.Uint32()-1) / float64(modulus-1)
	v := float32(float64(lo) + u*float64(hi-lo))
	if v >= hi && hi > lo {
		// float32 rounding of values just below hi
		return lo
	}
	return v
}
