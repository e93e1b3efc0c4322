package stats

import "sort"

// Pair is one observation of a (row, column) category pair, for example
// (region sequence, species).
type Pair struct {
	Row string
	Col string
}

// Pivot is a dense count matrix over the most abundant rows and columns.
type Pivot struct {
	Rows   []string `json:"rows"`
	Cols   []string `json:"cols"`
	Counts [][]int  `json:"counts"`
}

// Abundance counts pairs and keeps the topRows rows and topCols columns with
// the highest marginal totals (ties by name). Missing cells are zero.
// A non-positive top keeps every row or column.
func Abundance(pairs []Pair, topRows, topCols int) *Pivot {
	cells := make(map[Pair]int)
	rowTotals := make(map[string]int)
	colTotals := make(map[string]int)
	for _, p := range pairs {
		cells[p]++
		rowTotals[p.Row]++
		colTotals[p.Col]++
	}
	pv := &Pivot{
		Rows: topKeys(rowTotals, topRows),
		Cols: topKeys(colTotals, topCols),
	}
	pv.Counts = make([][]int, len(pv.Rows))
	for i, r := range pv.Rows {
		pv.Counts[i] = make([]int, len(pv.Cols))
		for j, c := range pv.Cols {
			pv.Counts[i][j] = cells[Pair{Row: r, Col: c}]
		}
	}
	return pv
}

func topKeys(totals map[string]int, n int) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
