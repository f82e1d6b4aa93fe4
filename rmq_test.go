package surf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeMin_LeftmostOnTies(t *testing.T) {
	r := newRangeMin([]uint64{3, 1, 4, 1, 5, 1})

	assert.Equal(t, 1, r.Min(0, 5))
	assert.Equal(t, 3, r.Min(2, 5))
	assert.Equal(t, 5, r.Min(4, 5))
	assert.Equal(t, 4, r.Min(4, 4))
	assert.Equal(t, 6, r.Len())
}

func TestRangeMin_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	values := make([]uint32, 97)
	for i := range values {
		values[i] = uint32(rng.Intn(10))
	}
	r := newRangeMin(values)

	for l := 0; l < len(values); l++ {
		for h := l; h < len(values); h++ {
			want := l
			for i := l + 1; i <= h; i++ {
				if values[i] < values[want] {
					want = i
				}
			}
			require.Equal(t, want, r.Min(l, h), "range [%d, %d]", l, h)
		}
	}
}

func TestRangeMin_Empty(t *testing.T) {
	r := newRangeMin[uint64](nil)
	assert.Equal(t, 0, r.Len())
}
