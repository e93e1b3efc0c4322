package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/protein-design/predict-antibody/internal/models"
)

// Column aliases: the first name is the canonical one written on output.
var (
	colStructureID    = []string{"pdb_id", "structure_id"}
	colChainIndex     = []string{"chain_no", "chain_index"}
	colChainID        = []string{"chain_id"}
	colRegionName     = []string{"region_name"}
	colSeqFrom        = []string{"seq_from"}
	colSeqTo          = []string{"seq_to"}
	colSeq            = []string{"seq"}
	colStart          = []string{"start"}
	colEnd            = []string{"end"}
	colPairSeq        = []string{"pair_aa", "pair_seq"}
	colPairChainIndex = []string{"pair_chain_no", "pair_chain_index"}
	colComboID        = []string{"combo_id"}
	colChainCombo     = []string{"chain_combo"}
	colAbChainNo      = []string{"ab_chain_no"}
	colDist           = []string{"dist"}
)

// parseFloat accepts plain decimal notation only, so identifiers such as the
// PDB code "1E10" are not mistaken for numbers.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return 0, fmt.Errorf("not a decimal number: %q", s)
		}
	}
	return strconv.ParseFloat(s, 64)
}

// parseInt accepts integers and integral floats ("3.0"), which spreadsheet
// round trips tend to produce.
func parseInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

type rowReader struct {
	t    *Table
	row  int
	errs []string
}

func (rr *rowReader) str(col int) string {
	return rr.t.Cell(rr.row, col)
}

func (rr *rowReader) integer(col int, name string) int64 {
	s := rr.t.Cell(rr.row, col)
	n, err := parseInt(s)
	if err != nil {
		rr.errs = append(rr.errs, fmt.Sprintf("%s: %v", name, err))
	}
	return n
}

// optInteger reads an integer column that may be missing or blank.
func (rr *rowReader) optInteger(col int, name string) int64 {
	if col < 0 || rr.t.Cell(rr.row, col) == "" {
		return 0
	}
	return rr.integer(col, name)
}

func (rr *rowReader) failed() *models.ItemError {
	if len(rr.errs) == 0 {
		return nil
	}
	return &models.ItemError{
		Key:     fmt.Sprintf("row %d", rr.row+2),
		Kind:    models.KindMalformedRow,
		Message: strings.Join(rr.errs, "; "),
	}
}

func requireColumns(t *Table, groups ...[]string) ([]int, error) {
	idx := make([]int, len(groups))
	var missing []string
	for i, g := range groups {
		idx[i] = t.Index(g...)
		if idx[i] < 0 {
			missing = append(missing, g[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// DecodeReferenceRegions reads the aligned-region table. A missing required
// column is an error for the whole table; a bad cell only drops its row.
func DecodeReferenceRegions(t *Table) ([]models.ReferenceRegion, []models.ItemError, error) {
	idx, err := requireColumns(t, colStructureID, colChainIndex, colRegionName, colSeqFrom, colSeqTo)
	if err != nil {
		return nil, nil, err
	}
	seqCol := t.Index(colSeq...)
	chainIDCol := t.Index(colChainID...)

	var out []models.ReferenceRegion
	var errs []models.ItemError
	for r := range t.Rows {
		rr := &rowReader{t: t, row: r}
		reg := models.ReferenceRegion{
			StructureID: rr.str(idx[0]),
			ChainIndex:  int(rr.integer(idx[1], "chain_no")),
			RegionName:  rr.str(idx[2]),
			SeqFrom:     int(rr.integer(idx[3], "seq_from")),
			SeqTo:       int(rr.integer(idx[4], "seq_to")),
			Seq:         rr.str(seqCol),
			ChainID:     rr.str(chainIDCol),
		}
		if e := rr.failed(); e != nil {
			errs = append(errs, *e)
			continue
		}
		out = append(out, reg)
	}
	return out, errs, nil
}

// DecodeCandidateMotifs reads the experimental motif table.
func DecodeCandidateMotifs(t *Table) ([]models.CandidateMotif, []models.ItemError, error) {
	idx, err := requireColumns(t, colStructureID, colChainIndex, colStart, colEnd)
	if err != nil {
		return nil, nil, err
	}
	seqCol := t.Index(colSeq...)
	pairSeqCol := t.Index(colPairSeq...)
	pairChainCol := t.Index(colPairChainIndex...)
	comboCol := t.Index(colComboID...)

	var out []models.CandidateMotif
	var errs []models.ItemError
	for r := range t.Rows {
		rr := &rowReader{t: t, row: r}
		m := models.CandidateMotif{
			StructureID:    rr.str(idx[0]),
			ChainIndex:     int(rr.integer(idx[1], "chain_no")),
			Start:          int(rr.integer(idx[2], "start")),
			End:            int(rr.integer(idx[3], "end")),
			Seq:            rr.str(seqCol),
			PairSeq:        rr.str(pairSeqCol),
			PairChainIndex: int(rr.optInteger(pairChainCol, "pair_chain_no")),
			ComboID:        rr.optInteger(comboCol, "combo_id"),
		}
		if e := rr.failed(); e != nil {
			errs = append(errs, *e)
			continue
		}
		out = append(out, m)
	}
	return out, errs, nil
}

// DecodeComplexDistances reads the per-complex distance table. The dist cell
// holds a JSON array or a list separated by semicolons, commas or spaces.
func DecodeComplexDistances(t *Table) ([]models.ComplexDistances, []models.ItemError, error) {
	idx, err := requireColumns(t, colStructureID, colComboID, colDist)
	if err != nil {
		return nil, nil, err
	}
	comboCol := t.Index(colChainCombo...)
	abCol := t.Index(colAbChainNo...)

	var out []models.ComplexDistances
	var errs []models.ItemError
	for r := range t.Rows {
		rr := &rowReader{t: t, row: r}
		c := models.ComplexDistances{
			PDBID:      rr.str(idx[0]),
			ComboID:    rr.integer(idx[1], "combo_id"),
			ChainCombo: rr.str(comboCol),
			AbChainNo:  int(rr.optInteger(abCol, "ab_chain_no")),
		}
		dist, err := ParseDistances(rr.str(idx[2]))
		if err != nil {
			rr.errs = append(rr.errs, fmt.Sprintf("dist: %v", err))
		}
		c.Dist = dist
		if e := rr.failed(); e != nil {
			errs = append(errs, *e)
			continue
		}
		out = append(out, c)
	}
	return out, errs, nil
}

// ParseDistances parses a distance list cell. An empty cell yields no values;
// a null element is an error, never a zero distance.
func ParseDistances(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var raw []*float64
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, err
		}
		out := make([]float64, len(raw))
		for i, v := range raw {
			if v == nil {
				return nil, fmt.Errorf("null at position %d", i)
			}
			out[i] = *v
		}
		return out, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == ' ' || r == '\t'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
