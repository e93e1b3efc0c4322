package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/protein-design/predict-antibody/internal/config"
	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/overlap"
	"github.com/protein-design/predict-antibody/internal/storage"
	"github.com/protein-design/predict-antibody/internal/table"
)

const regionsCSV = `pdb_id,chain_id,chain_no,region_name,seq_from,seq_to,seq
7abc,H,0,CDR1,11,20,GFTFSSYAMS
7abc,H,0,CDR3,30,39,ARDYWGQGTL
8xyz,L,1,CDR1,5,9,QSVSS
9bad,H,0,CDR1,20,10,XXXX
`

const motifsCSV = `pdb_id,chain_no,start,end,seq,pair_aa,pair_chain_no,combo_id
7abc,0,12,18,SSYAMS,KLMN,2,3
7abc,0,40,45,WGQG,PQRS,2,4
8xyz,1,20,25,NOPE,ABCD,0,5
9bad,0,12,18,SSYA,EFGH,1,6
`

const distancesCSV = `pdb_id,combo_id,chain_combo,ab_chain_no,dist
7abc,3,H_A,0,"[4.0, 2.0, 3.0]"
7abc,4,L_A,1,"9;8;7;6;5;4;3;2;1;0"
8xyz,5,H_B,0,
`

func csvTable(t *testing.T, s string) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(s), ',')
	require.NoError(t, err)
	return tbl
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "predab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Matching.Regions = []string{"CDR1"}
	cfg.Distance.Workers = 2
	return New(store, cfg, opts...), store
}

func importAll(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx := context.Background()
	for kind, content := range map[string]string{
		storage.InputRegions:   regionsCSV,
		storage.InputMotifs:    motifsCSV,
		storage.InputDistances: distancesCSV,
	} {
		_, err := p.Import(ctx, kind, csvTable(t, content), false)
		require.NoError(t, err, kind)
	}
}

func TestRunMatch_storesRowsAndErrors(t *testing.T) {
	p, store := newTestPipeline(t)
	importAll(t, p)
	ctx := context.Background()

	run, err := p.RunMatch(ctx, models.MatchRequest{Regions: []string{"CDR1", "CDR3"}})
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	cdr1 := run.Results[0]
	assert.Equal(t, "7abc", cdr1.StructureID)
	assert.Equal(t, "CDR1", cdr1.RegionName)
	assert.True(t, cdr1.Matched)
	assert.InDelta(t, 0.6, cdr1.Overlap, 1e-12)
	assert.Equal(t, "SSYAMS", cdr1.AA)
	assert.Equal(t, int64(3), cdr1.ComboID)

	unmatched := run.Results[1]
	assert.Equal(t, "8xyz", unmatched.StructureID)
	assert.False(t, unmatched.Matched)
	assert.Equal(t, 0.0, unmatched.Overlap)
	assert.Equal(t, int64(0), unmatched.ComboID)

	assert.Equal(t, "CDR3", run.Results[2].RegionName)
	assert.False(t, run.Results[2].Matched)

	require.Len(t, run.Errors, 1)
	assert.Equal(t, "9bad/0/CDR1", run.Errors[0].Key)
	assert.Equal(t, models.KindMalformedInterval, run.Errors[0].Kind)

	stored, err := store.ListMatchResults(ctx, run.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Results, stored)

	gotRun, err := store.GetRun(ctx, run.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunKindMatch, gotRun.Kind)
	assert.Equal(t, 3, gotRun.Rows)
	assert.Equal(t, 1, gotRun.Errors)

	require.Contains(t, run.Overlap, "CDR1")
	assert.Equal(t, 2, run.Overlap["CDR1"].Count)
	assert.InDelta(t, 0.3, run.Overlap["CDR1"].Mean, 1e-12)
}

func TestRunMatch_defaultsRegionsFromConfig(t *testing.T) {
	p, _ := newTestPipeline(t)
	importAll(t, p)

	run, err := p.RunMatch(context.Background(), models.MatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"CDR1"}, toInterfaces(run.Run.Params["regions"]))
	for _, r := range run.Results {
		assert.Equal(t, "CDR1", r.RegionName)
	}
}

func toInterfaces(v interface{}) []interface{} {
	switch s := v.(type) {
	case []string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []interface{}:
		return s
	}
	return nil
}

func TestRunMatch_offsetWidensReference(t *testing.T) {
	p, _ := newTestPipeline(t)
	importAll(t, p)

	run, err := p.RunMatch(context.Background(), models.MatchRequest{Regions: []string{"CDR3"}, Offset: 2})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	// [29, 39) widened by 2 meets [40, 45) on 40.
	assert.True(t, run.Results[0].Matched)
	assert.InDelta(t, 0.1, run.Results[0].Overlap, 1e-12)
}

func TestRunMatch_reportsUnknownRegions(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p, _ := newTestPipeline(t, WithLogger(zap.New(core)))
	importAll(t, p)

	run, err := p.RunMatch(context.Background(), models.MatchRequest{Regions: []string{"CDR1", "CRD3"}})
	require.NoError(t, err)
	assert.Equal(t, []overlap.RegionHint{{Region: "CRD3", Suggestion: "CDR3"}}, run.Unknown)

	warned := logs.FilterMessage("region has no reference rows").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "CDR3", warned[0].ContextMap()["suggestion"])
}

func TestRunMatch_rejectsNegativeOffset(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.RunMatch(context.Background(), models.MatchRequest{Regions: []string{"CDR1"}, Offset: -1})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunDistance_keepsAbsentFeatures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p, store := newTestPipeline(t, WithLogger(zap.New(core)), WithClock(func() time.Time { return fixed }))
	importAll(t, p)
	ctx := context.Background()

	run, err := p.RunDistance(ctx)
	require.NoError(t, err)
	require.Len(t, run.Records, 2)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, "8xyz/5", run.Errors[0].Key)
	assert.Equal(t, models.KindEmptyDistances, run.Errors[0].Kind)

	short := run.Records[0]
	require.NotNil(t, short.Rank3)
	assert.Equal(t, 4.0, *short.Rank3)
	assert.Nil(t, short.Rank4)
	assert.Nil(t, short.Mean5)

	full := run.Records[1]
	require.NotNil(t, full.Mean10)
	assert.InDelta(t, 4.5, *full.Mean10, 1e-12)

	stored, err := store.ListDistanceRecords(ctx, run.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Records, stored)

	gotRun, err := store.GetRun(ctx, run.Run.ID)
	require.NoError(t, err)
	assert.True(t, gotRun.CreatedAt.Equal(fixed))

	assert.Equal(t, 1, logs.FilterMessage("distance run stored").Len())
	assert.Equal(t, 1, logs.FilterMessage("distances summarized").Len())
}

func TestImport_replaceClearsPreviousRows(t *testing.T) {
	p, store := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Import(ctx, storage.InputRegions, csvTable(t, regionsCSV), false)
	require.NoError(t, err)
	res, err := p.Import(ctx, storage.InputRegions, csvTable(t, regionsCSV), true)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)

	counts, err := store.CountInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Regions)

	_, err = p.Import(ctx, "unknown", csvTable(t, regionsCSV), false)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

// failingStore rejects every region insert.
type failingStore struct {
	storage.Storage
}

func (failingStore) InsertReferenceRegions(context.Context, []models.ReferenceRegion, bool) error {
	return errors.New("disk full")
}

func TestImport_failedReplaceKeepsStoredRows(t *testing.T) {
	_, store := newTestPipeline(t)
	ctx := context.Background()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	_, err := New(store, cfg).Import(ctx, storage.InputRegions, csvTable(t, regionsCSV), false)
	require.NoError(t, err)

	_, err = New(failingStore{store}, cfg).Import(ctx, storage.InputRegions, csvTable(t, regionsCSV), true)
	require.ErrorContains(t, err, "disk full")

	counts, err := store.CountInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Regions)
}

func TestImport_reportsMalformedRows(t *testing.T) {
	p, _ := newTestPipeline(t)
	bad := "pdb_id,chain_no,start,end\n7abc,0,1,5\n7abc,x,1,5\n"
	res, err := p.Import(context.Background(), storage.InputMotifs, csvTable(t, bad), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.KindMalformedRow, res.Errors[0].Kind)
}

func TestMatchTables_prependsDecodeErrors(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	p := New(nil, cfg)

	motifs := motifsCSV + "7abc,zero,1,2,AA,BB,0,9\n"
	report, err := p.MatchTables(csvTable(t, regionsCSV), csvTable(t, motifs), models.MatchRequest{Regions: []string{"CDR1"}})
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, models.KindMalformedRow, report.Errors[0].Kind)
	assert.Equal(t, models.KindMalformedInterval, report.Errors[1].Kind)
	assert.Len(t, report.Results, 2)

	_, err = p.RunMatch(context.Background(), models.MatchRequest{})
	assert.Error(t, err, "no storage configured")
}

func TestTables_errorsNeverNil(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	p := New(nil, cfg)

	refs := "pdb_id,chain_id,chain_no,region_name,seq_from,seq_to,seq\n7abc,H,0,CDR1,11,20,GFTFSSYAMS\n"
	motifs := "pdb_id,chain_no,start,end,seq,pair_aa,pair_chain_no,combo_id\n7abc,0,12,18,SSYAMS,KLMN,2,3\n"
	report, err := p.MatchTables(csvTable(t, refs), csvTable(t, motifs), models.MatchRequest{Regions: []string{"CDR1"}})
	require.NoError(t, err)
	assert.NotNil(t, report.Errors)
	assert.Empty(t, report.Errors)

	summary, err := p.SummarizeTables(csvTable(t, "pdb_id,combo_id,chain_combo,ab_chain_no,dist\n7abc,3,H_A,0,\"[4.0]\"\n"))
	require.NoError(t, err)
	assert.NotNil(t, summary.Errors)
	assert.Empty(t, summary.Errors)
}

func TestSummarizeTables(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	p := New(nil, cfg)

	report, err := p.SummarizeTables(csvTable(t, distancesCSV+"9zzz,x,H_A,0,1\n"))
	require.NoError(t, err)
	assert.Len(t, report.Records, 2)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, models.KindMalformedRow, report.Errors[0].Kind)
	assert.Equal(t, models.KindEmptyDistances, report.Errors[1].Kind)

	_, err = p.SummarizeTables(csvTable(t, "pdb_id,dist\n1abc,1\n"))
	assert.Error(t, err)
}
