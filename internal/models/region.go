// Package models defines the record types shared by the matcher, the distance
// summarizer, storage and the HTTP API.
package models

// ReferenceRegion is one structurally aligned region of an antibody chain
// (for example CDR1-IMGT). SeqFrom and SeqTo are 1-based and inclusive.
type ReferenceRegion struct {
	StructureID string `json:"pdb_id" db:"pdb_id"`
	ChainIndex  int    `json:"chain_no" db:"chain_no"`
	ChainID     string `json:"chain_id,omitempty" db:"chain_id"`
	RegionName  string `json:"region_name" db:"region_name"`
	SeqFrom     int    `json:"seq_from" db:"seq_from"`
	SeqTo       int    `json:"seq_to" db:"seq_to"`
	Seq         string `json:"seq" db:"seq"`
}

// Bounds returns the region as a 0-based half-open range.
func (r ReferenceRegion) Bounds() (start, end int) {
	return r.SeqFrom - 1, r.SeqTo
}

// SeqLen is the inclusive residue count of the region.
func (r ReferenceRegion) SeqLen() int {
	return r.SeqTo - r.SeqFrom + 1
}

// Key identifies the region within the reference index.
func (r ReferenceRegion) Key() RegionKey {
	return RegionKey{StructureID: r.StructureID, ChainIndex: r.ChainIndex, RegionName: r.RegionName}
}

// CandidateMotif is an experimentally annotated binding motif on a chain.
// Start and End are already 0-based half-open.
type CandidateMotif struct {
	StructureID    string `json:"pdb_id" db:"pdb_id"`
	ChainIndex     int    `json:"chain_no" db:"chain_no"`
	Start          int    `json:"start" db:"start"`
	End            int    `json:"end" db:"end"`
	Seq            string `json:"seq" db:"seq"`
	PairSeq        string `json:"pair_aa" db:"pair_aa"`
	PairChainIndex int    `json:"pair_chain_no" db:"pair_chain_no"`
	ComboID        int64  `json:"combo_id" db:"combo_id"`
}

// Group returns the (structure, chain) key the motif is grouped under.
func (m CandidateMotif) Group() GroupKey {
	return GroupKey{StructureID: m.StructureID, ChainIndex: m.ChainIndex}
}

// GroupKey is the (structure, chain) grouping key for candidate motifs.
type GroupKey struct {
	StructureID string
	ChainIndex  int
}

// Less orders keys by structure id, then chain index.
func (k GroupKey) Less(o GroupKey) bool {
	if k.StructureID != o.StructureID {
		return k.StructureID < o.StructureID
	}
	return k.ChainIndex < o.ChainIndex
}

// Region extends the group key with a region name.
func (k GroupKey) Region(name string) RegionKey {
	return RegionKey{StructureID: k.StructureID, ChainIndex: k.ChainIndex, RegionName: name}
}

// RegionKey is the composite key of the reference index.
type RegionKey struct {
	StructureID string
	ChainIndex  int
	RegionName  string
}
