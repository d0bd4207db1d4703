// Package masks loads and caches land/sea masks from grid files.
package masks

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/oceanbgc/marineval/internal/dataset"
)

type cacheKey struct {
	file string
	mask string
}

// Mask is a loaded mask variable with its shape retained, so consumers can
// slice out a surface layer from a 3-D mask.
type Mask struct {
	Values []float64
	Shape  []int
}

// Surface returns the first layer of a depth-resolved mask, or the whole
// mask when it has no depth axis.
func (m *Mask) Surface() []float64 {
	if len(m.Shape) < 3 {
		return m.Values
	}
	layer := 1
	for _, n := range m.Shape[len(m.Shape)-2:] {
		layer *= n
	}
	if layer > len(m.Values) {
		return m.Values
	}
	return m.Values[:layer]
}

// Cache holds masks keyed by (file, mask name). It is a plain map intended
// for single-threaded reuse within one process; entries persist for the
// life of the process and there is no eviction. It is not safe for
// concurrent use.
type Cache struct {
	entries map[cacheKey]*Mask
	load    func(file, maskName string) (*Mask, error)
}

// NewCache returns an empty mask cache backed by NetCDF reads.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[cacheKey]*Mask),
		load:    loadFromFile,
	}
}

// NewCacheWithLoader returns a cache backed by the given load function.
// Callers that do not read masks from grid files, such as tests, supply
// their own loader.
func NewCacheWithLoader(load func(file, maskName string) (*Mask, error)) *Cache {
	return &Cache{
		entries: make(map[cacheKey]*Mask),
		load:    load,
	}
}

// Get returns the named mask from file, loading it on first use.
func (c *Cache) Get(file, maskName string) (*Mask, error) {
	k := cacheKey{file: file, mask: maskName}
	if m, ok := c.entries[k]; ok {
		return m, nil
	}
	m, err := c.load(file, maskName)
	if err != nil {
		return nil, fmt.Errorf("load mask %s from %s: %w", maskName, file, err)
	}
	log.Debug().Str("file", file).Str("mask", maskName).Int("cells", len(m.Values)).Msg("Loaded mask")
	c.entries[k] = m
	return m, nil
}

func loadFromFile(file, maskName string) (*Mask, error) {
	ds, err := dataset.Open(file)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	values, err := ds.ReadFloats(maskName)
	if err != nil {
		return nil, err
	}
	shape, err := ds.Shape(maskName)
	if err != nil {
		return nil, err
	}
	return &Mask{Values: values, Shape: shape}, nil
}
