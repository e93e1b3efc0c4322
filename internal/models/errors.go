package models

import "fmt"

// Kinds of per-item failure reported next to batch results.
const (
	KindMalformedInterval = "malformed_interval"
	KindEmptyDistances    = "empty_distances"
	KindInvalidDistance   = "invalid_distance"
	KindMalformedRow      = "malformed_row"
)

// ItemError reports one failed item of a batch without aborting its siblings.
type ItemError struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Key, e.Kind, e.Message)
}

// RegionItemKey formats a region key for error lists.
func RegionItemKey(k RegionKey) string {
	return fmt.Sprintf("%s/%d/%s", k.StructureID, k.ChainIndex, k.RegionName)
}

// ComplexItemKey formats a (pdb_id, combo_id) key for error lists.
func ComplexItemKey(pdbID string, comboID int64) string {
	return fmt.Sprintf("%s/%d", pdbID, comboID)
}
