package models

// MatchResult is one output row per (structure, chain, region) reference group.
// Candidate-derived fields are zero when no motif overlapped the region.
type MatchResult struct {
	ReferenceRegion
	SeqLen      int     `json:"seq_len" db:"seq_len"`
	Matched     bool    `json:"matched" db:"matched"`
	AA          string  `json:"aa" db:"aa"`
	PairAA      string  `json:"pair_aa" db:"pair_aa"`
	ExpStart    int     `json:"exp_start" db:"exp_start"`
	ExpEnd      int     `json:"exp_end" db:"exp_end"`
	PairChainNo int     `json:"pair_chain_no" db:"pair_chain_no"`
	ComboID     int64   `json:"combo_id" db:"combo_id"`
	Overlap     float64 `json:"overlap" db:"overlap"`
}

// ComplexDistances holds the raw inter-chain distances of one complex and
// chain combination.
type ComplexDistances struct {
	PDBID      string    `json:"pdb_id" db:"pdb_id"`
	ComboID    int64     `json:"combo_id" db:"combo_id"`
	ChainCombo string    `json:"chain_combo" db:"chain_combo"`
	AbChainNo  int       `json:"ab_chain_no" db:"ab_chain_no"`
	Dist       []float64 `json:"dist" db:"dist"`
}

// DistanceRecord is the per-complex feature row. A nil field means the
// complex has too few distances for that rank; it is never zero-filled.
type DistanceRecord struct {
	PDBID      string   `json:"pdb_id" db:"pdb_id"`
	ComboID    int64    `json:"combo_id" db:"combo_id"`
	ChainCombo string   `json:"chain_combo" db:"chain_combo"`
	AbChainNo  int      `json:"ab_chain_no" db:"ab_chain_no"`
	Count      int      `json:"count" db:"count"`
	Rank1      *float64 `json:"1th" db:"rank1"`
	Rank2      *float64 `json:"2th" db:"rank2"`
	Rank3      *float64 `json:"3th" db:"rank3"`
	Rank4      *float64 `json:"4th" db:"rank4"`
	Rank5      *float64 `json:"5th" db:"rank5"`
	Rank10     *float64 `json:"10th" db:"rank10"`
	Mean5      *float64 `json:"mean5th" db:"mean5"`
	Mean10     *float64 `json:"mean10th" db:"mean10"`
}

// Features returns the optional feature values in output column order.
func (d *DistanceRecord) Features() []*float64 {
	return []*float64{d.Rank1, d.Rank2, d.Rank3, d.Rank4, d.Rank5, d.Rank10, d.Mean5, d.Mean10}
}

// FeatureColumns names the values returned by Features.
var FeatureColumns = []string{"1th", "2th", "3th", "4th", "5th", "10th", "mean5th", "mean10th"}
