package models

import "time"

// Run kinds.
const (
	RunKindMatch    = "match"
	RunKindDistance = "distance"
)

// Run records one persisted batch of results.
type Run struct {
	ID        string                 `json:"id" db:"id"`
	Kind      string                 `json:"kind" db:"kind"`
	Params    map[string]interface{} `json:"params,omitempty" db:"params"`
	Rows      int                    `json:"rows" db:"rows"`
	Errors    int                    `json:"errors" db:"errors"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// InputCounts reports how many input rows storage holds per family.
type InputCounts struct {
	Regions   int64 `json:"regions"`
	Motifs    int64 `json:"motifs"`
	Complexes int64 `json:"complexes"`
	Runs      int64 `json:"runs"`
}
