package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinstdMatchesReferenceSequence(t *testing.T) {
	// minstd_rand seeded with 1 (and 0, which maps to 1).
	want := []uint32{48271, 182605794, 1291394886, 1914720637, 2078669041}
	for _, seed := range []uint32{0, 1} {
		r := New(seed)
		for i, w := range want {
			assert.Equal(t, w, r.Uint32(), "seed %d value %d", seed, i)
		}
	}
}

func TestMinstdSeedTen(t *testing.T) {
	r := New(10)
	assert.Equal(t, uint32(482710), r.Uint32())
}

func TestZeroValueUsable(t *testing.T) {
	var r Minstd
	assert.Equal(t, uint32(48271), r.Uint32())
}

func TestIntnRange(t *testing.T) {
	r := New(42)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := r.Intn(3, 7)
		assert.GreaterOrEqual(t, v, 3)
		assert.Less(t, v, 7)
		seen[v] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 5, r.Intn(5, 5))
}

func TestFloatRange(t *testing.T) {
	r := New(7)
	for i := 0; i < 1000; i++ {
		v := r.Float(-1, 1)
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
}
