// Package pipeline loads inputs from storage or tables, runs the matcher and
// the distance summarizer over them, and persists the results as runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protein-design/predict-antibody/internal/config"
	"github.com/protein-design/predict-antibody/internal/distance"
	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/overlap"
	"github.com/protein-design/predict-antibody/internal/stats"
	"github.com/protein-design/predict-antibody/internal/storage"
	"github.com/protein-design/predict-antibody/internal/table"
)

// ErrInvalidRequest marks errors caused by the caller's request rather than
// by storage or the data.
var ErrInvalidRequest = errors.New("invalid request")

// Pipeline wires storage to the matching and summarizing core.
type Pipeline struct {
	storage    storage.Storage
	matching   config.MatchingConfig
	summarizer *distance.Summarizer
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for run events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline over store. store may be nil when only the
// in-memory operations are used.
func New(store storage.Storage, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		storage:  store,
		matching: cfg.Matching,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.summarizer = distance.NewSummarizer(
		distance.WithWorkers(cfg.Distance.Workers),
		distance.WithLogger(p.logger.Named("distance")),
	)
	return p
}

// MatchRun is a persisted matching run.
type MatchRun struct {
	Run     *models.Run               `json:"run"`
	Results []models.MatchResult      `json:"results"`
	Errors  []models.ItemError        `json:"errors"`
	Unknown []overlap.RegionHint      `json:"unknown_regions,omitempty"`
	Overlap map[string]*stats.Summary `json:"overlap,omitempty"`
}

// DistanceRun is a persisted distance run.
type DistanceRun struct {
	Run     *models.Run             `json:"run"`
	Records []models.DistanceRecord `json:"records"`
	Errors  []models.ItemError      `json:"errors"`
}

// normalize fills the region list from config and validates the request.
func (p *Pipeline) normalize(req models.MatchRequest) (models.MatchRequest, error) {
	if len(req.Regions) == 0 {
		req.Regions = append([]string(nil), p.matching.Regions...)
	} else {
		req.Regions = append([]string(nil), req.Regions...)
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

func (p *Pipeline) requireStorage() error {
	if p.storage == nil {
		return fmt.Errorf("pipeline has no storage")
	}
	return nil
}

// RunMatch loads the reference regions and motifs from storage, matches
// every requested region and stores the outcome under a new run ID.
func (p *Pipeline) RunMatch(ctx context.Context, req models.MatchRequest) (*MatchRun, error) {
	if err := p.requireStorage(); err != nil {
		return nil, err
	}
	req, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	regions, err := p.storage.ListReferenceRegions(ctx, req.Regions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference regions: %w", err)
	}
	motifs, err := p.storage.ListCandidateMotifs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load motifs: %w", err)
	}

	known, err := p.storage.ListRegionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load region names: %w", err)
	}

	report := overlap.MatchRegions(req.Regions, motifs, overlap.NewReferenceIndex(regions), req.Offset)
	report.Unknown = overlap.UnknownRegions(req.Regions, known)
	p.warnUnknown(report.Unknown)

	run := &models.Run{
		ID:        uuid.New().String(),
		Params:    map[string]interface{}{"regions": req.Regions, "offset": req.Offset},
		CreatedAt: p.now(),
	}
	if err := p.storage.SaveMatchRun(ctx, run, report.Results, report.Errors); err != nil {
		return nil, fmt.Errorf("failed to save match run: %w", err)
	}
	p.logger.Info("match run stored",
		zap.String("run_id", run.ID),
		zap.Strings("regions", req.Regions),
		zap.Int("offset", req.Offset),
		zap.Int("references", len(regions)),
		zap.Int("motifs", len(motifs)),
		zap.Int("rows", run.Rows),
		zap.Int("errors", run.Errors),
	)
	return &MatchRun{
		Run:     run,
		Results: report.Results,
		Errors:  report.Errors,
		Unknown: report.Unknown,
		Overlap: OverlapByRegion(report.Results),
	}, nil
}

func (p *Pipeline) warnUnknown(hints []overlap.RegionHint) {
	for _, h := range hints {
		p.logger.Warn("region has no reference rows",
			zap.String("region", h.Region),
			zap.String("suggestion", h.Suggestion),
		)
	}
}

// RunDistance summarizes every stored distance list and stores the outcome
// under a new run ID.
func (p *Pipeline) RunDistance(ctx context.Context) (*DistanceRun, error) {
	if err := p.requireStorage(); err != nil {
		return nil, err
	}
	complexes, err := p.storage.ListComplexDistances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load distances: %w", err)
	}

	report := p.summarizer.SummarizeAll(complexes)

	run := &models.Run{ID: uuid.New().String(), CreatedAt: p.now()}
	if err := p.storage.SaveDistanceRun(ctx, run, report.Records, report.Errors); err != nil {
		return nil, fmt.Errorf("failed to save distance run: %w", err)
	}
	p.logger.Info("distance run stored",
		zap.String("run_id", run.ID),
		zap.Int("complexes", report.Processed),
		zap.Int("rows", run.Rows),
		zap.Int("errors", run.Errors),
	)
	return &DistanceRun{Run: run, Records: report.Records, Errors: report.Errors}, nil
}

// MatchInline matches the regions of req against the references and
// candidates it carries, without touching storage.
func (p *Pipeline) MatchInline(req models.InlineMatchRequest) (*overlap.MatchReport, error) {
	mr, err := p.normalize(req.MatchRequest)
	if err != nil {
		return nil, err
	}
	idx := overlap.NewReferenceIndex(req.References)
	report := overlap.MatchRegions(mr.Regions, req.Candidates, idx, mr.Offset)
	report.Unknown = overlap.UnknownRegions(mr.Regions, idx.RegionNames())
	p.warnUnknown(report.Unknown)
	return report, nil
}

// MatchTables decodes reference and motif tables and matches them. Rows that
// fail to decode are reported ahead of the matching errors.
func (p *Pipeline) MatchTables(references, motifs *table.Table, req models.MatchRequest) (*overlap.MatchReport, error) {
	refs, refErrs, err := table.DecodeReferenceRegions(references)
	if err != nil {
		return nil, fmt.Errorf("reference table: %w", err)
	}
	cands, candErrs, err := table.DecodeCandidateMotifs(motifs)
	if err != nil {
		return nil, fmt.Errorf("motif table: %w", err)
	}
	report, err := p.MatchInline(models.InlineMatchRequest{MatchRequest: req, References: refs, Candidates: cands})
	if err != nil {
		return nil, err
	}
	report.Errors = joinErrors(refErrs, candErrs, report.Errors)
	return report, nil
}

// joinErrors concatenates error lists into a new, never nil, slice.
func joinErrors(lists ...[]models.ItemError) []models.ItemError {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]models.ItemError, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Summarize summarizes complexes without touching storage.
func (p *Pipeline) Summarize(complexes []models.ComplexDistances) *distance.SummaryReport {
	return p.summarizer.SummarizeAll(complexes)
}

// SummarizeTables decodes a distance table and summarizes it.
func (p *Pipeline) SummarizeTables(distances *table.Table) (*distance.SummaryReport, error) {
	complexes, decodeErrs, err := table.DecodeComplexDistances(distances)
	if err != nil {
		return nil, fmt.Errorf("distance table: %w", err)
	}
	report := p.summarizer.SummarizeAll(complexes)
	report.Errors = joinErrors(decodeErrs, report.Errors)
	return report, nil
}

// ImportResult reports how many rows of a table were stored.
type ImportResult struct {
	Kind   string             `json:"kind"`
	Rows   int                `json:"rows"`
	Errors []models.ItemError `json:"errors"`
}

// Import decodes t as the given input kind and inserts the decoded rows.
// With replace, existing rows of that kind are removed first.
func (p *Pipeline) Import(ctx context.Context, kind string, t *table.Table, replace bool) (*ImportResult, error) {
	if err := p.requireStorage(); err != nil {
		return nil, err
	}
	if err := storage.ValidInput(kind); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	res := &ImportResult{Kind: kind}
	var insert func() error
	switch kind {
	case storage.InputRegions:
		rows, errs, err := table.DecodeReferenceRegions(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		res.Rows, res.Errors = len(rows), errs
		insert = func() error { return p.storage.InsertReferenceRegions(ctx, rows, replace) }
	case storage.InputMotifs:
		rows, errs, err := table.DecodeCandidateMotifs(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		res.Rows, res.Errors = len(rows), errs
		insert = func() error { return p.storage.InsertCandidateMotifs(ctx, rows, replace) }
	case storage.InputDistances:
		rows, errs, err := table.DecodeComplexDistances(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		res.Rows, res.Errors = len(rows), errs
		insert = func() error { return p.storage.InsertComplexDistances(ctx, rows, replace) }
	}

	if err := insert(); err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	p.logger.Info("table imported",
		zap.String("kind", kind),
		zap.Int("rows", res.Rows),
		zap.Int("errors", len(res.Errors)),
		zap.Bool("replace", replace),
	)
	return res, nil
}
