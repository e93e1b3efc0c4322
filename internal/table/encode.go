package table

import (
	"strconv"

	"github.com/protein-design/predict-antibody/internal/models"
)

// MatchColumns is the header written by EncodeMatchResults.
var MatchColumns = []string{
	"pdb_id", "chain_no", "chain_id", "region_name", "seq_from", "seq_to", "seq", "seq_len",
	"aa", "pair_aa", "exp_start", "exp_end", "pair_chain_no", "combo_id", "overlap",
}

// DistanceColumns is the header written by EncodeDistanceRecords.
var DistanceColumns = append([]string{"pdb_id", "combo_id", "chain_combo", "ab_chain_no"}, models.FeatureColumns...)

// ErrorColumns is the header written by EncodeItemErrors.
var ErrorColumns = []string{"key", "kind", "message"}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// EncodeMatchResults renders match rows. Unmatched rows carry 0 in every
// numeric motif column.
func EncodeMatchResults(results []models.MatchResult) *Table {
	t := New(MatchColumns...)
	for _, r := range results {
		t.Append(
			r.StructureID, itoa(r.ChainIndex), r.ChainID, r.RegionName,
			itoa(r.SeqFrom), itoa(r.SeqTo), r.Seq, itoa(r.SeqLen),
			r.AA, r.PairAA, itoa(r.ExpStart), itoa(r.ExpEnd),
			itoa(r.PairChainNo), strconv.FormatInt(r.ComboID, 10), ftoa(r.Overlap),
		)
	}
	return t
}

// EncodeDistanceRecords renders distance feature rows. Absent features are
// empty cells.
func EncodeDistanceRecords(records []models.DistanceRecord) *Table {
	t := New(DistanceColumns...)
	for i := range records {
		d := &records[i]
		row := []string{d.PDBID, strconv.FormatInt(d.ComboID, 10), d.ChainCombo, itoa(d.AbChainNo)}
		for _, v := range d.Features() {
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, ftoa(*v))
		}
		t.Append(row...)
	}
	return t
}

// EncodeItemErrors renders an error list.
func EncodeItemErrors(errs []models.ItemError) *Table {
	t := New(ErrorColumns...)
	for _, e := range errs {
		t.Append(e.Key, e.Kind, e.Message)
	}
	return t
}
