package overlap

import (
	"sort"
	"strings"
)

// maxSuggestDistance is the largest edit distance at which a known region
// name is offered for an unknown one.
const maxSuggestDistance = 2

// RegionHint names a requested region without any reference row and the
// closest known name, if one is near enough.
type RegionHint struct {
	Region     string `json:"region"`
	Suggestion string `json:"suggestion,omitempty"`
}

// UnknownRegions returns a hint for every requested name missing from known,
// in request order.
func UnknownRegions(requested, known []string) []RegionHint {
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	var hints []RegionHint
	for _, name := range requested {
		if _, ok := set[name]; ok {
			continue
		}
		hints = append(hints, RegionHint{Region: name, Suggestion: SuggestRegion(name, known)})
	}
	return hints
}

// SuggestRegion returns the known name closest to name, compared without
// case, or "" when none is within maxSuggestDistance edits. Ties go to the
// lexically smaller name.
func SuggestRegion(name string, known []string) string {
	candidates := append([]string(nil), known...)
	sort.Strings(candidates)
	target := strings.ToUpper(name)
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range candidates {
		if d := editDistance(target, strings.ToUpper(k)); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// editDistance is the Damerau-Levenshtein distance: insertions, deletions,
// substitutions and adjacent transpositions each cost one edit.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+cost)
			}
		}
	}
	return d[len(ra)][len(rb)]
}
