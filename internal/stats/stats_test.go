package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{1, 4},
		{0.5, 2.5},
		{0.25, 1.75},
		{0.95, 3.85},
	}
	for _, tt := range tests {
		got, err := Quantile(values, tt.q)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12, "q=%v", tt.q)
	}
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input must stay unsorted")
}

func TestQuantile_errors(t *testing.T) {
	_, err := Quantile(nil, 0.5)
	assert.True(t, errors.Is(err, ErrNoValues))
	_, err = Quantile([]float64{1}, 1.5)
	assert.Error(t, err)
	_, err = Quantile([]float64{1}, -0.1)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	s, err := Describe([]float64{0.2, 1, 0.6, 0.4, 0.8})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 0.6, s.Mean, 1e-12)
	assert.Equal(t, 0.2, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.InDelta(t, 0.6, s.Median, 1e-12)
	assert.InDelta(t, 0.4, s.Q25, 1e-12)
	assert.InDelta(t, 0.8, s.Q75, 1e-12)

	_, err = Describe(nil)
	assert.True(t, errors.Is(err, ErrNoValues))
}

func TestPercentHistogram(t *testing.T) {
	bins, err := PercentHistogram([]float64{0, 10, 55, 100, 100, 120}, 4, 0, 100)
	require.NoError(t, err)
	require.Len(t, bins, 4)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 0, bins[1].Count)
	assert.Equal(t, 1, bins[2].Count)
	assert.Equal(t, 2, bins[3].Count, "upper bound belongs to the last bin")
	assert.InDelta(t, 100.0/3, bins[0].Percent, 1e-9)
	assert.Equal(t, 100.0, bins[3].Hi)

	_, err = PercentHistogram(nil, 0, 0, 1)
	assert.Error(t, err)
	_, err = PercentHistogram(nil, 3, 1, 1)
	assert.Error(t, err)
}

func TestAbundance(t *testing.T) {
	pairs := []Pair{
		{"GFTFSSYA", "human"}, {"GFTFSSYA", "human"}, {"GFTFSSYA", "mouse"},
		{"GYTFTSYW", "mouse"}, {"GYTFTSYW", "mouse"},
		{"GGSISSGG", "llama"},
	}
	pv := Abundance(pairs, 2, 2)
	assert.Equal(t, []string{"GFTFSSYA", "GYTFTSYW"}, pv.Rows)
	assert.Equal(t, []string{"mouse", "human"}, pv.Cols)
	assert.Equal(t, [][]int{{1, 2}, {2, 0}}, pv.Counts)

	all := Abundance(pairs, 0, 0)
	assert.Len(t, all.Rows, 3)
	assert.Len(t, all.Cols, 3)
}
