package overlap

import (
	"fmt"
	"sort"

	"github.com/protein-design/predict-antibody/internal/models"
)

// MatchReport is the outcome of matching one or more regions: the produced
// rows plus the items that could not be processed.
type MatchReport struct {
	Regions []string             `json:"regions"`
	Results []models.MatchResult `json:"results"`
	Errors  []models.ItemError   `json:"errors"`
	Unknown []RegionHint         `json:"unknown_regions,omitempty"`
}

type group struct {
	key    models.GroupKey
	motifs []models.CandidateMotif
}

// groupMotifs buckets candidates by (structure, chain), keeping each bucket in
// input order, and returns the buckets sorted by key.
func groupMotifs(candidates []models.CandidateMotif) []*group {
	byKey := make(map[models.GroupKey]*group)
	var groups []*group
	for _, m := range candidates {
		k := m.Group()
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.motifs = append(g.motifs, m)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key.Less(groups[j].key) })
	return groups
}

// MatchRegion picks, for every (structure, chain) group of candidates that has
// a reference region named regionName, the candidate with the highest positive
// overlap score. Groups without a reference are skipped. Groups whose best
// score is not positive still produce a row with zero-valued motif fields.
// Ties keep the candidate that appears first in the input.
func MatchRegion(regionName string, candidates []models.CandidateMotif, index *ReferenceIndex, offset int) *MatchReport {
	return MatchRegions([]string{regionName}, candidates, index, offset)
}

// MatchRegions runs MatchRegion for each name in order and concatenates the reports.
func MatchRegions(regionNames []string, candidates []models.CandidateMotif, index *ReferenceIndex, offset int) *MatchReport {
	report := &MatchReport{
		Regions: append([]string(nil), regionNames...),
		Results: []models.MatchResult{},
		Errors:  []models.ItemError{},
	}
	groups := groupMotifs(candidates)
	for _, name := range regionNames {
		for _, g := range groups {
			ref, ok := index.Lookup(g.key.Region(name))
			if !ok {
				continue
			}
			res, errs := matchGroup(ref, g.motifs, offset)
			report.Errors = append(report.Errors, errs...)
			if res != nil {
				report.Results = append(report.Results, *res)
			}
		}
	}
	return report
}

func matchGroup(ref models.ReferenceRegion, motifs []models.CandidateMotif, offset int) (*models.MatchResult, []models.ItemError) {
	itemKey := models.RegionItemKey(ref.Key())
	start, end := ref.Bounds()
	refIv := Interval{Start: start, End: end}
	if !refIv.Valid() {
		return nil, []models.ItemError{{
			Key:     itemKey,
			Kind:    models.KindMalformedInterval,
			Message: fmt.Sprintf("reference seq_from=%d seq_to=%d gives %s", ref.SeqFrom, ref.SeqTo, refIv),
		}}
	}

	var errs []models.ItemError
	best := -1
	bestScore := 0.0
	for i, m := range motifs {
		cand := Interval{Start: m.Start, End: m.End}
		if !cand.Valid() {
			errs = append(errs, models.ItemError{
				Key:     fmt.Sprintf("%s#%d", itemKey, i),
				Kind:    models.KindMalformedInterval,
				Message: fmt.Sprintf("candidate %s", cand),
			})
			continue
		}
		score, err := OverlapScore(refIv, cand, offset)
		if err != nil {
			errs = append(errs, models.ItemError{Key: itemKey, Kind: models.KindMalformedInterval, Message: err.Error()})
			return nil, errs
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	res := &models.MatchResult{ReferenceRegion: ref, SeqLen: ref.SeqLen()}
	if best >= 0 {
		m := motifs[best]
		res.Matched = true
		res.AA = m.Seq
		res.PairAA = m.PairSeq
		res.ExpStart = m.Start
		res.ExpEnd = m.End
		res.PairChainNo = m.PairChainIndex
		res.ComboID = m.ComboID
		res.Overlap = bestScore
	}
	return res, errs
}
