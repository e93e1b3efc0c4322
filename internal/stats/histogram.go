package stats

import "fmt"

// Bin is one histogram bucket [Lo, Hi). The last bin of a histogram also
// includes Hi.
type Bin struct {
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// PercentHistogram buckets values into bins equal-width bins over [lo, hi].
// Values outside the range are ignored but still count toward the percent
// denominator.
func PercentHistogram(values []float64, bins int, lo, hi float64) ([]Bin, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive: %d", bins)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("empty range [%v, %v]", lo, hi)
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	if len(values) > 0 {
		for i := range out {
			out[i].Percent = 100 * float64(out[i].Count) / float64(len(values))
		}
	}
	return out, nil
}
