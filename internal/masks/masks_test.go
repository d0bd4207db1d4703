package masks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingCache(loads *int, m *Mask, loadErr error) *Cache {
	return &Cache{
		entries: make(map[cacheKey]*Mask),
		load: func(file, maskName string) (*Mask, error) {
			*loads++
			if loadErr != nil {
				return nil, loadErr
			}
			return m, nil
		},
	}
}

func TestCache_LoadsOncePerKey(t *testing.T) {
	loads := 0
	c := countingCache(&loads, &Mask{Values: []float64{1, 0, 1}, Shape: []int{3}}, nil)

	first, err := c.Get("grid.nc", "tmask")
	require.NoError(t, err)
	second, err := c.Get("grid.nc", "tmask")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loads, "second Get must be served from cache")
}

func TestCache_DistinctKeysLoadSeparately(t *testing.T) {
	loads := 0
	c := countingCache(&loads, &Mask{Values: []float64{1}, Shape: []int{1}}, nil)

	_, err := c.Get("grid.nc", "tmask")
	require.NoError(t, err)
	_, err = c.Get("grid.nc", "umask")
	require.NoError(t, err)
	_, err = c.Get("other.nc", "tmask")
	require.NoError(t, err)

	assert.Equal(t, 3, loads)
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	loads := 0
	c := countingCache(&loads, nil, errors.New("boom"))

	_, err := c.Get("grid.nc", "tmask")
	require.Error(t, err)
	_, err = c.Get("grid.nc", "tmask")
	require.Error(t, err)
	assert.Equal(t, 2, loads, "failed loads must not be cached")
}

func TestMask_Surface(t *testing.T) {
	// 2 depth levels of a 2x3 grid.
	m := &Mask{
		Values: []float64{1, 1, 0, 1, 0, 1, 0, 0, 0, 0, 0, 0},
		Shape:  []int{2, 2, 3},
	}
	assert.Equal(t, []float64{1, 1, 0, 1, 0, 1}, m.Surface())

	flat := &Mask{Values: []float64{1, 0}, Shape: []int{2}}
	assert.Equal(t, []float64{1, 0}, flat.Surface())
}
