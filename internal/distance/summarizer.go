package distance

import (
	"errors"

	"go.uber.org/zap"

	"github.com/protein-design/predict-antibody/internal/models"
)

// SummaryReport holds the records that summarized cleanly and the complexes
// that did not. Records keep the input order.
type SummaryReport struct {
	Records   []models.DistanceRecord `json:"records"`
	Errors    []models.ItemError      `json:"errors"`
	Processed int                     `json:"processed"`
}

// Summarizer applies Summarize over batches of complexes.
type Summarizer struct {
	workers int
	logger  *zap.Logger
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithLogger sets the logger used for the per-batch diagnostic.
func WithLogger(l *zap.Logger) SummarizerOption {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers summarizes with n goroutines. Values below 2 run inline.
func WithWorkers(n int) SummarizerOption {
	return func(s *Summarizer) { s.workers = n }
}

// NewSummarizer returns a Summarizer.
func NewSummarizer(opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outcome struct {
	rec models.DistanceRecord
	err error
}

// SummarizeAll summarizes every complex independently. A failing complex is
// reported in Errors and does not stop the batch.
func (s *Summarizer) SummarizeAll(complexes []models.ComplexDistances) *SummaryReport {
	outcomes := make([]outcome, len(complexes))
	if s.workers < 2 || len(complexes) < 2 {
		for i, c := range complexes {
			rec, err := Summarize(c)
			outcomes[i] = outcome{rec, err}
		}
	} else {
		p := newPool(s.workers, complexes, outcomes)
		for i := range complexes {
			p.enqueue(i)
		}
		p.done()
	}

	report := &SummaryReport{
		Records:   []models.DistanceRecord{},
		Errors:    []models.ItemError{},
		Processed: len(complexes),
	}
	for i, o := range outcomes {
		if o.err != nil {
			c := complexes[i]
			report.Errors = append(report.Errors, models.ItemError{
				Key:     models.ComplexItemKey(c.PDBID, c.ComboID),
				Kind:    errorKind(o.err),
				Message: o.err.Error(),
			})
			continue
		}
		report.Records = append(report.Records, o.rec)
	}
	s.logger.Info("distances summarized",
		zap.Int("complexes", report.Processed),
		zap.Int("records", len(report.Records)),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyDistances):
		return models.KindEmptyDistances
	case errors.Is(err, ErrInvalidDistance):
		return models.KindInvalidDistance
	default:
		return "unknown"
	}
}
