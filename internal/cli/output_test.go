package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/pipeline"
)

func sampleMatches() ([]models.MatchResult, []models.ItemError) {
	results := []models.MatchResult{
		{
			ReferenceRegion: models.ReferenceRegion{StructureID: "7abc", RegionName: "CDR1", SeqFrom: 11, SeqTo: 20},
			SeqLen:          10, Matched: true, AA: "SSYAMS", ExpStart: 12, ExpEnd: 18, ComboID: 3, Overlap: 0.6,
		},
		{
			ReferenceRegion: models.ReferenceRegion{StructureID: "8xyz", ChainIndex: 1, RegionName: "CDR1", SeqFrom: 5, SeqTo: 9},
			SeqLen:          5,
		},
	}
	errs := []models.ItemError{{Key: "9bad/0/CDR1", Kind: models.KindMalformedInterval, Message: "reference empty"}}
	return results, errs
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteMatchResults_JSON(t *testing.T) {
	results, errs := sampleMatches()
	var buf bytes.Buffer
	require.NoError(t, WriteMatchResults(&buf, results, errs, OutputJSON))

	var decoded struct {
		Results []models.MatchResult `json:"results"`
		Errors  []models.ItemError   `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, results, decoded.Results)
	assert.Equal(t, errs, decoded.Errors)
}

func TestWriteMatchResults_JSONEmptyListsAreArrays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatchResults(&buf, nil, nil, OutputJSON))
	assert.Contains(t, buf.String(), `"results": []`)
	assert.Contains(t, buf.String(), `"errors": []`)
}

func TestWriteMatchResults_compact(t *testing.T) {
	results, errs := sampleMatches()
	var buf bytes.Buffer
	require.NoError(t, WriteMatchResults(&buf, results, errs, OutputCompact))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "7abc/0/CDR1\t0.6000\t12\t18\t3\tSSYAMS", lines[0])
	assert.Equal(t, "8xyz/1/CDR1\t0.0000\t0\t0\t0\t", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "error\t9bad/0/CDR1\tmalformed_interval"))
}

func TestWriteMatchResults_text(t *testing.T) {
	results, errs := sampleMatches()
	var buf bytes.Buffer
	require.NoError(t, WriteMatchResults(&buf, results, errs, OutputText))
	out := buf.String()
	assert.Contains(t, out, "2 rows, 1 matched")
	assert.Contains(t, out, "SSYAMS")
	assert.Contains(t, out, "0.6000")
	assert.Contains(t, out, "1 items failed")
	assert.Contains(t, out, "9bad/0/CDR1")
}

func TestWriteDistanceRecords_absentFeatures(t *testing.T) {
	one, two := 1.0, 2.0
	records := []models.DistanceRecord{{PDBID: "7abc", ComboID: 3, Count: 2, Rank1: &one, Rank2: &two}}

	var buf bytes.Buffer
	require.NoError(t, WriteDistanceRecords(&buf, records, nil, OutputCompact))
	assert.Equal(t, "7abc/3\t2\t1.0000\t2.0000\t-\t-\t-\t-\t-\t-\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteDistanceRecords(&buf, records, nil, OutputJSON))
	var decoded struct {
		Records []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Records, 1)
	assert.Nil(t, decoded.Records[0]["3th"])
	assert.Equal(t, 2.0, decoded.Records[0]["2th"])

	buf.Reset()
	require.NoError(t, WriteDistanceRecords(&buf, records, nil, OutputText))
	assert.Contains(t, buf.String(), "1 records")
	assert.Contains(t, buf.String(), "mean10th")
	assert.NotContains(t, buf.String(), "items failed")
}

func TestWriteRuns(t *testing.T) {
	runs := []*models.Run{{
		ID: "r1", Kind: models.RunKindMatch, Rows: 4, Errors: 1,
		Params:    map[string]interface{}{"offset": 2, "regions": []string{"CDR3"}},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, runs, OutputText))
	assert.Contains(t, buf.String(), "offset=2 regions=[CDR3]")

	buf.Reset()
	require.NoError(t, WriteRuns(&buf, runs, OutputCompact))
	assert.Equal(t, "r1\tmatch\t4\t1\t2025-01-02T03:04:05Z\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteRuns(&buf, nil, OutputText))
	assert.Contains(t, buf.String(), "No runs stored.")
}

func TestWriteRunReport_text(t *testing.T) {
	results, errs := sampleMatches()
	summary, err := pipeline.SummarizeMatches(results, 5)
	require.NoError(t, err)
	report := &pipeline.RunReport{
		Run:     &models.Run{ID: "r1", Kind: models.RunKindMatch, Rows: 2, Errors: 1},
		Matches: summary,
		Errors:  errs,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRunReport(&buf, report, OutputText))
	out := buf.String()
	assert.Contains(t, out, "Run r1 (match)")
	assert.Contains(t, out, "CDR1")
	assert.Contains(t, out, "Most frequent matched sequences")
	assert.Contains(t, out, "SSYAMS")
	assert.Contains(t, out, "9bad/0/CDR1")
}

func TestWriteImportResultAndStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportResult(&buf, &pipeline.ImportResult{Kind: "motifs", Rows: 7}, OutputCompact))
	assert.Equal(t, "motifs\t7\t0\n", buf.String())

	buf.Reset()
	counts := &models.InputCounts{Regions: 1, Motifs: 2, Complexes: 3, Runs: 4}
	require.NoError(t, WriteStatus(&buf, counts, "/tmp/predab.db", OutputJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3.0, decoded["complexes"])
	assert.Equal(t, "/tmp/predab.db", decoded["database_path"])
}
