package pipeline

import (
	"context"
	"fmt"

	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/stats"
)

// HistogramBins is the number of overlap histogram bins over [0, 1].
const HistogramBins = 50

// OverlapByRegion describes the overlap column per region name. Unmatched
// rows count as zero overlap.
func OverlapByRegion(results []models.MatchResult) map[string]*stats.Summary {
	values := make(map[string][]float64)
	for _, r := range results {
		values[r.RegionName] = append(values[r.RegionName], r.Overlap)
	}
	out := make(map[string]*stats.Summary, len(values))
	for name, v := range values {
		s, err := stats.Describe(v)
		if err != nil {
			continue
		}
		out[name] = &s
	}
	return out
}

// RegionReport describes the rows of one region in a match run.
type RegionReport struct {
	Region    string         `json:"region"`
	Rows      int            `json:"rows"`
	Matched   int            `json:"matched"`
	Overlap   *stats.Summary `json:"overlap,omitempty"`
	Histogram []stats.Bin    `json:"histogram"`
}

// MatchSummary reports overlap statistics per region and the abundance of
// matched motif sequences per region.
type MatchSummary struct {
	Regions   []RegionReport `json:"regions"`
	Abundance *stats.Pivot   `json:"abundance"`
}

// SummarizeMatches builds per-region reports in first-appearance order and a
// pivot of the topN most frequent matched sequences.
func SummarizeMatches(results []models.MatchResult, topN int) (*MatchSummary, error) {
	var order []string
	byRegion := make(map[string]*RegionReport)
	values := make(map[string][]float64)
	var pairs []stats.Pair
	for _, r := range results {
		rr, ok := byRegion[r.RegionName]
		if !ok {
			rr = &RegionReport{Region: r.RegionName}
			byRegion[r.RegionName] = rr
			order = append(order, r.RegionName)
		}
		rr.Rows++
		values[r.RegionName] = append(values[r.RegionName], r.Overlap)
		if r.Matched {
			rr.Matched++
			pairs = append(pairs, stats.Pair{Row: r.AA, Col: r.RegionName})
		}
	}

	summary := &MatchSummary{Abundance: stats.Abundance(pairs, topN, 0)}
	for _, name := range order {
		rr := byRegion[name]
		s, err := stats.Describe(values[name])
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		rr.Overlap = &s
		rr.Histogram, err = stats.PercentHistogram(values[name], HistogramBins, 0, 1)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		summary.Regions = append(summary.Regions, *rr)
	}
	return summary, nil
}

// FeatureReport describes one distance feature column. Summary is nil when
// no record carries the feature.
type FeatureReport struct {
	Feature string         `json:"feature"`
	Present int            `json:"present"`
	Absent  int            `json:"absent"`
	Summary *stats.Summary `json:"summary,omitempty"`
}

// SummarizeFeatures describes every distance feature over the records that
// carry it. Absent values are counted, never treated as zero.
func SummarizeFeatures(records []models.DistanceRecord) []FeatureReport {
	out := make([]FeatureReport, len(models.FeatureColumns))
	values := make([][]float64, len(models.FeatureColumns))
	for i := range records {
		for j, v := range records[i].Features() {
			if v == nil {
				out[j].Absent++
				continue
			}
			values[j] = append(values[j], *v)
		}
	}
	for j, name := range models.FeatureColumns {
		out[j].Feature = name
		out[j].Present = len(values[j])
		if s, err := stats.Describe(values[j]); err == nil {
			out[j].Summary = &s
		}
	}
	return out
}

// RunReport is the statistical report of a stored run.
type RunReport struct {
	Run      *models.Run        `json:"run"`
	Matches  *MatchSummary      `json:"matches,omitempty"`
	Features []FeatureReport    `json:"features,omitempty"`
	Errors   []models.ItemError `json:"errors"`
}

// Report loads a stored run and builds its statistical report.
func (p *Pipeline) Report(ctx context.Context, runID string, topN int) (*RunReport, error) {
	if err := p.requireStorage(); err != nil {
		return nil, err
	}
	run, err := p.storage.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	errs, err := p.storage.ListItemErrors(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item errors: %w", err)
	}
	report := &RunReport{Run: run, Errors: errs}

	switch run.Kind {
	case models.RunKindMatch:
		results, err := p.storage.ListMatchResults(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to load match results: %w", err)
		}
		if report.Matches, err = SummarizeMatches(results, topN); err != nil {
			return nil, err
		}
	case models.RunKindDistance:
		records, err := p.storage.ListDistanceRecords(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to load distance records: %w", err)
		}
		report.Features = SummarizeFeatures(records)
	default:
		return nil, fmt.Errorf("run %s has unknown kind %q", runID, run.Kind)
	}
	return report, nil
}
