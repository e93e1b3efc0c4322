package models

import (
	"fmt"
	"strings"
)

// MatchRequest selects which regions to match and with what offset tolerance.
type MatchRequest struct {
	Regions []string `json:"regions"`
	Offset  int      `json:"offset"`
}

// Validate trims and de-duplicates region names and checks the offset.
// An empty region list is an error; callers fill defaults from config first.
func (q *MatchRequest) Validate() error {
	seen := make(map[string]bool, len(q.Regions))
	regions := q.Regions[:0]
	for _, r := range q.Regions {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		regions = append(regions, r)
	}
	q.Regions = regions
	if len(q.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative: %d", q.Offset)
	}
	return nil
}

// InlineMatchRequest carries the input tables directly instead of reading
// them from storage.
type InlineMatchRequest struct {
	MatchRequest
	References []ReferenceRegion `json:"references"`
	Candidates []CandidateMotif  `json:"candidates"`
}

// InlineDistanceRequest carries complexes to summarize directly.
type InlineDistanceRequest struct {
	Complexes []ComplexDistances `json:"complexes"`
}
