package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/protein-design/predict-antibody/internal/models"
)

func TestReadCSV_skipsBlankRows(t *testing.T) {
	in := "pdb_id,chain_no,region_name\n7abc,0,CDR1\n,,\n7abc,1,CDR2\n"
	tbl, err := ReadCSV(strings.NewReader(in), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"pdb_id", "chain_no", "region_name"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "CDR2", tbl.Cell(1, 2))
	assert.Equal(t, "", tbl.Cell(5, 0))
	assert.Equal(t, "", tbl.Cell(0, -1))
}

func TestReadCSV_noHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), ',')
	assert.Error(t, err)
}

func TestIndex_aliasesAndCase(t *testing.T) {
	tbl := New("Structure_ID", "chain_index")
	assert.Equal(t, 0, tbl.Index("pdb_id", "structure_id"))
	assert.Equal(t, 1, tbl.Index(colChainIndex...))
	assert.Equal(t, -1, tbl.Index("missing"))
}

func TestCSVRoundTrip_padsShortRows(t *testing.T) {
	tbl := New("a", "b", "c")
	tbl.Append("1", "2")
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, ','))
	assert.Equal(t, "a,b,c\n1,2,\n", buf.String())
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "pdb_id")
	f.SetCellValue("Sheet1", "B1", "combo_id")
	f.SetCellValue("Sheet1", "C1", "dist")
	f.SetCellValue("Sheet1", "A2", "7abc")
	f.SetCellValue("Sheet1", "B2", 4)
	f.SetCellValue("Sheet1", "C2", "[3.5, 1.25]")
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	tbl, err := ReadXLSX(&buf, "")
	require.NoError(t, err)
	complexes, errs, err := DecodeComplexDistances(tbl)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, complexes, 1)
	assert.Equal(t, int64(4), complexes[0].ComboID)
	assert.Equal(t, []float64{3.5, 1.25}, complexes[0].Dist)
}

func TestXLSXFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "matches.xlsx")
	results := []models.MatchResult{{
		ReferenceRegion: models.ReferenceRegion{StructureID: "1E10", ChainIndex: 0, RegionName: "CDR1", SeqFrom: 11, SeqTo: 20, Seq: "GFTFSSYAMS"},
		SeqLen:          10,
	}}
	require.NoError(t, WriteFile(path, EncodeMatchResults(results), "CDR1"))

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1E10", tbl.Cell(0, tbl.Index("pdb_id")), "PDB codes must not turn into numbers")
	assert.Equal(t, "0", tbl.Cell(0, tbl.Index("overlap")))
	assert.Equal(t, "10", tbl.Cell(0, tbl.Index("seq_len")))
}

func TestReadBytes_unsupported(t *testing.T) {
	_, err := ReadBytes([]byte("x"), ".pkl")
	assert.Error(t, err)
	assert.True(t, IsTableFile("a/b/regions.XLSX"))
	assert.False(t, IsTableFile("a/b/regions.pkl"))
}
