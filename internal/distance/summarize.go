// Package distance turns per-complex inter-chain distance lists into fixed-rank
// and prefix-mean features.
package distance

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/protein-design/predict-antibody/internal/models"
)

var (
	// ErrEmptyDistances is returned for a complex without any distance.
	ErrEmptyDistances = errors.New("empty distance list")
	// ErrInvalidDistance is returned for NaN or infinite distances.
	ErrInvalidDistance = errors.New("invalid distance value")
)

// Summarize sorts the distances of c ascending and extracts the 1st-5th and
// 10th smallest values plus the means of the first 5 and 10. A feature is left
// nil when c has fewer values than it needs. c.Dist is not modified.
func Summarize(c models.ComplexDistances) (models.DistanceRecord, error) {
	rec := models.DistanceRecord{
		PDBID:      c.PDBID,
		ComboID:    c.ComboID,
		ChainCombo: c.ChainCombo,
		AbChainNo:  c.AbChainNo,
		Count:      len(c.Dist),
	}
	if len(c.Dist) == 0 {
		return rec, ErrEmptyDistances
	}
	sorted := make([]float64, len(c.Dist))
	for i, d := range c.Dist {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return rec, fmt.Errorf("%w at position %d: %v", ErrInvalidDistance, i, d)
		}
		sorted[i] = d
	}
	sort.Float64s(sorted)

	rec.Rank1 = rank(sorted, 1)
	rec.Rank2 = rank(sorted, 2)
	rec.Rank3 = rank(sorted, 3)
	rec.Rank4 = rank(sorted, 4)
	rec.Rank5 = rank(sorted, 5)
	rec.Rank10 = rank(sorted, 10)
	rec.Mean5 = prefixMean(sorted, 5)
	rec.Mean10 = prefixMean(sorted, 10)
	return rec, nil
}

// rank returns the k-th smallest value (1-based), or nil.
func rank(sorted []float64, k int) *float64 {
	if len(sorted) < k {
		return nil
	}
	v := sorted[k-1]
	return &v
}

// prefixMean returns the mean of the first k values, or nil.
func prefixMean(sorted []float64, k int) *float64 {
	if len(sorted) < k {
		return nil
	}
	var sum float64
	for _, v := range sorted[:k] {
		sum += v
	}
	m := sum / float64(k)
	return &m
}
