package overlap

import (
	"sort"

	"github.com/protein-design/predict-antibody/internal/models"
)

// ReferenceIndex maps (structure, chain, region) to its aligned region.
// It is built once and shared read-only across MatchRegion calls.
type ReferenceIndex struct {
	regions map[models.RegionKey]models.ReferenceRegion
	names   map[string]struct{}
}

// NewReferenceIndex indexes regions by composite key. When a key repeats,
// the first row wins.
func NewReferenceIndex(regions []models.ReferenceRegion) *ReferenceIndex {
	idx := &ReferenceIndex{
		regions: make(map[models.RegionKey]models.ReferenceRegion, len(regions)),
		names:   make(map[string]struct{}),
	}
	for _, r := range regions {
		k := r.Key()
		if _, ok := idx.regions[k]; ok {
			continue
		}
		idx.regions[k] = r
		idx.names[r.RegionName] = struct{}{}
	}
	return idx
}

// Lookup returns the region stored under key.
func (idx *ReferenceIndex) Lookup(key models.RegionKey) (models.ReferenceRegion, bool) {
	r, ok := idx.regions[key]
	return r, ok
}

// Len is the number of distinct keys.
func (idx *ReferenceIndex) Len() int {
	return len(idx.regions)
}

// RegionNames returns the distinct region names, sorted.
func (idx *ReferenceIndex) RegionNames() []string {
	names := make([]string, 0, len(idx.names))
	for n := range idx.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
