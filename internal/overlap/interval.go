// Package overlap scores how much of an aligned reference region is covered
// by experimentally observed motifs and picks the best motif per region.
package overlap

import (
	"errors"
	"fmt"
)

// ErrMalformedInterval is returned for an interval whose end is not after its start.
var ErrMalformedInterval = errors.New("malformed interval")

// Interval is a 0-based half-open range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len is End-Start; it is not clamped.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// Valid reports whether the interval has positive length.
func (iv Interval) Valid() bool {
	return iv.End > iv.Start
}

// Expand widens the interval by offset on both ends.
func (iv Interval) Expand(offset int) Interval {
	return Interval{Start: iv.Start - offset, End: iv.End + offset}
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d)", iv.Start, iv.End)
}

// OverlapScore returns the fraction of ref covered by cand once ref is widened
// by offset on both sides. The count of covered positions is divided by the
// un-widened length of ref and capped at 1.
func OverlapScore(ref, cand Interval, offset int) (float64, error) {
	if !ref.Valid() {
		return 0, fmt.Errorf("reference %s: %w", ref, ErrMalformedInterval)
	}
	w := ref.Expand(offset)
	lo := max(w.Start, cand.Start)
	hi := min(w.End, cand.End)
	covered := hi - lo
	if covered <= 0 {
		return 0, nil
	}
	r := float64(covered) / float64(ref.Len())
	if r > 1 {
		return 1, nil
	}
	return r, nil
}
