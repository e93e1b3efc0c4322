package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protein-design/predict-antibody/internal/models"
)

func mustCSV(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(s), ',')
	require.NoError(t, err)
	return tbl
}

func TestDecodeReferenceRegions(t *testing.T) {
	tbl := mustCSV(t, `pdb_id,chain_id,chain_no,region_name,seq_from,seq_to,seq
7abc,7abc_H,0,CDR1-IMGT,26,33,GFTFSSYA
7abc,7abc_H,x,CDR2-IMGT,51,58,ISGSGGST
7abc,7abc_L,1,CDR3-IMGT,105,113.0,QQYNSYPLT
`)
	regions, errs, err := DecodeReferenceRegions(tbl)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "7abc_H", regions[0].ChainID)
	assert.Equal(t, 26, regions[0].SeqFrom)
	assert.Equal(t, 113, regions[1].SeqTo)
	require.Len(t, errs, 1)
	assert.Equal(t, "row 3", errs[0].Key)
	assert.Equal(t, models.KindMalformedRow, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "chain_no")
}

func TestDecodeReferenceRegions_missingColumn(t *testing.T) {
	tbl := mustCSV(t, "pdb_id,chain_no,region_name,seq_from\n7abc,0,CDR1,26\n")
	_, _, err := DecodeReferenceRegions(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seq_to")
}

func TestDecodeCandidateMotifs_aliases(t *testing.T) {
	tbl := mustCSV(t, `structure_id,chain_index,start,end,seq,pair_seq,pair_chain_index,combo_id
7abc,0,25,33,GFTFSSYA,DYKDDDDK,2,17
7abc,1,104,112,QQYNSYPL,,,
`)
	motifs, errs, err := DecodeCandidateMotifs(tbl)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, motifs, 2)
	assert.Equal(t, models.CandidateMotif{
		StructureID: "7abc", ChainIndex: 0, Start: 25, End: 33,
		Seq: "GFTFSSYA", PairSeq: "DYKDDDDK", PairChainIndex: 2, ComboID: 17,
	}, motifs[0])
	assert.Equal(t, int64(0), motifs[1].ComboID)
}

func TestDecodeComplexDistances_formats(t *testing.T) {
	tbl := mustCSV(t, `pdb_id,combo_id,chain_combo,ab_chain_no,dist
7abc,1,H-A,0,"[4.2, 3.1]"
7abc,2,L-A,1,5.5;6.5;7.5
7abc,3,H-L,0,
7abc,4,H-B,0,oops
`)
	complexes, errs, err := DecodeComplexDistances(tbl)
	require.NoError(t, err)
	require.Len(t, complexes, 3)
	assert.Equal(t, []float64{4.2, 3.1}, complexes[0].Dist)
	assert.Equal(t, []float64{5.5, 6.5, 7.5}, complexes[1].Dist)
	assert.Empty(t, complexes[2].Dist, "an empty list is decoded and left for the summarizer to reject")
	require.Len(t, errs, 1)
	assert.Equal(t, "row 5", errs[0].Key)
}

func TestParseDistances(t *testing.T) {
	got, err := ParseDistances("1 2\t3,4")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got)

	_, err = ParseDistances("[1,")
	assert.Error(t, err)

	got, err = ParseDistances("[4.2, null, 3.1]")
	assert.ErrorContains(t, err, "null at position 1")
	assert.Nil(t, got)
}

func TestDecodeComplexDistances_nullDistanceIsMalformed(t *testing.T) {
	tbl := mustCSV(t, `pdb_id,combo_id,chain_combo,ab_chain_no,dist
7abc,1,H-A,0,"[4.2, null, 3.1]"
7abc,2,L-A,1,"[0, 1]"
`)
	complexes, errs, err := DecodeComplexDistances(tbl)
	require.NoError(t, err)
	require.Len(t, complexes, 1)
	assert.Equal(t, []float64{0, 1}, complexes[0].Dist)
	require.Len(t, errs, 1)
	assert.Equal(t, "row 2", errs[0].Key)
	assert.Equal(t, models.KindMalformedRow, errs[0].Kind)
}

func TestParseInt(t *testing.T) {
	n, err := parseInt("7.0")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	_, err = parseInt("7.5")
	assert.Error(t, err)
	_, err = parseInt("1E3")
	assert.Error(t, err)
}
