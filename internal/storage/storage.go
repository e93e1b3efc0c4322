// Package storage defines the relational source of reference regions, motifs
// and distance lists, and the persistence of result runs.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/protein-design/predict-antibody/internal/models"
)

// Input families held by storage.
const (
	InputRegions   = "regions"
	InputMotifs    = "motifs"
	InputDistances = "distances"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// ValidInput reports whether kind names an input family.
func ValidInput(kind string) error {
	switch kind {
	case InputRegions, InputMotifs, InputDistances:
		return nil
	}
	return fmt.Errorf("unknown input kind %q (want %s, %s or %s)", kind, InputRegions, InputMotifs, InputDistances)
}

// Storage defines input and result persistence operations.
type Storage interface {
	// Input operations
	// Insert* append rows, or swap out the whole family when replace is set.
	InsertReferenceRegions(ctx context.Context, regions []models.ReferenceRegion, replace bool) error
	InsertCandidateMotifs(ctx context.Context, motifs []models.CandidateMotif, replace bool) error
	InsertComplexDistances(ctx context.Context, complexes []models.ComplexDistances, replace bool) error
	ListReferenceRegions(ctx context.Context, regionNames ...string) ([]models.ReferenceRegion, error)
	ListRegionNames(ctx context.Context) ([]string, error)
	ListCandidateMotifs(ctx context.Context) ([]models.CandidateMotif, error)
	ListComplexDistances(ctx context.Context) ([]models.ComplexDistances, error)

	// Run operations
	SaveMatchRun(ctx context.Context, run *models.Run, results []models.MatchResult, errs []models.ItemError) error
	SaveDistanceRun(ctx context.Context, run *models.Run, records []models.DistanceRecord, errs []models.ItemError) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)
	ListMatchResults(ctx context.Context, runID string) ([]models.MatchResult, error)
	ListDistanceRecords(ctx context.Context, runID string) ([]models.DistanceRecord, error)
	ListItemErrors(ctx context.Context, runID string) ([]models.ItemError, error)

	// Stats
	CountInputs(ctx context.Context) (*models.InputCounts, error)

	Close() error
}
