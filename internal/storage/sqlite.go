// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/protein-design/predict-antibody/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS align_vfrag (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pdb_id TEXT NOT NULL,
		chain_id TEXT,
		chain_no INTEGER NOT NULL,
		region_name TEXT NOT NULL,
		seq_from INTEGER NOT NULL,
		seq_to INTEGER NOT NULL,
		seq TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_vfrag_region ON align_vfrag(region_name);

	CREATE TABLE IF NOT EXISTS motifs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pdb_id TEXT NOT NULL,
		chain_no INTEGER NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		seq TEXT,
		pair_aa TEXT,
		pair_chain_no INTEGER,
		combo_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_motifs_chain ON motifs(pdb_id, chain_no);

	CREATE TABLE IF NOT EXISTS complex_distances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pdb_id TEXT NOT NULL,
		combo_id INTEGER NOT NULL,
		chain_combo TEXT,
		ab_chain_no INTEGER,
		dist TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		params TEXT,
		rows INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS match_results (
		run_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		pdb_id TEXT NOT NULL,
		chain_id TEXT,
		chain_no INTEGER NOT NULL,
		region_name TEXT NOT NULL,
		seq_from INTEGER NOT NULL,
		seq_to INTEGER NOT NULL,
		seq TEXT,
		seq_len INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		aa TEXT NOT NULL DEFAULT '',
		pair_aa TEXT NOT NULL DEFAULT '',
		exp_start INTEGER NOT NULL DEFAULT 0,
		exp_end INTEGER NOT NULL DEFAULT 0,
		pair_chain_no INTEGER NOT NULL DEFAULT 0,
		combo_id INTEGER NOT NULL DEFAULT 0,
		overlap REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, ordinal),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS distance_records (
		run_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		pdb_id TEXT NOT NULL,
		combo_id INTEGER NOT NULL,
		chain_combo TEXT,
		ab_chain_no INTEGER,
		count INTEGER NOT NULL,
		rank1 REAL,
		rank2 REAL,
		rank3 REAL,
		rank4 REAL,
		rank5 REAL,
		rank10 REAL,
		mean5 REAL,
		mean10 REAL,
		PRIMARY KEY (run_id, ordinal),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS item_errors (
		run_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		item_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT,
		PRIMARY KEY (run_id, ordinal),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// batchInsert runs query once per row inside a single transaction. When
// truncate is non-empty, that table is emptied in the same transaction first,
// so a failed insert leaves the stored rows untouched.
func (s *SQLiteStorage) batchInsert(ctx context.Context, truncate, query string, n int, args func(i int) ([]interface{}, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if truncate != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+truncate); err != nil {
			return fmt.Errorf("failed to clear %s: %w", truncate, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// replaceTable returns table when replace is set.
func replaceTable(replace bool, table string) string {
	if replace {
		return table
	}
	return ""
}

// InsertReferenceRegions inserts aligned regions in a transaction. With
// replace, the stored regions are dropped in that transaction.
func (s *SQLiteStorage) InsertReferenceRegions(ctx context.Context, regions []models.ReferenceRegion, replace bool) error {
	return s.batchInsert(ctx, replaceTable(replace, "align_vfrag"),
		`INSERT INTO align_vfrag (pdb_id, chain_id, chain_no, region_name, seq_from, seq_to, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(regions), func(i int) ([]interface{}, error) {
			r := regions[i]
			return []interface{}{r.StructureID, r.ChainID, r.ChainIndex, r.RegionName, r.SeqFrom, r.SeqTo, r.Seq}, nil
		})
}

// InsertCandidateMotifs inserts experimental motifs in a transaction.
func (s *SQLiteStorage) InsertCandidateMotifs(ctx context.Context, motifs []models.CandidateMotif, replace bool) error {
	return s.batchInsert(ctx, replaceTable(replace, "motifs"),
		`INSERT INTO motifs (pdb_id, chain_no, start_pos, end_pos, seq, pair_aa, pair_chain_no, combo_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(motifs), func(i int) ([]interface{}, error) {
			m := motifs[i]
			return []interface{}{m.StructureID, m.ChainIndex, m.Start, m.End, m.Seq, m.PairSeq, m.PairChainIndex, m.ComboID}, nil
		})
}

// InsertComplexDistances inserts distance lists in a transaction. Each list is
// stored as a JSON array.
func (s *SQLiteStorage) InsertComplexDistances(ctx context.Context, complexes []models.ComplexDistances, replace bool) error {
	return s.batchInsert(ctx, replaceTable(replace, "complex_distances"),
		`INSERT INTO complex_distances (pdb_id, combo_id, chain_combo, ab_chain_no, dist)
		 VALUES (?, ?, ?, ?, ?)`,
		len(complexes), func(i int) ([]interface{}, error) {
			c := complexes[i]
			dist := c.Dist
			if dist == nil {
				dist = []float64{}
			}
			distJSON, err := json.Marshal(dist)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal distances of %s: %w", c.PDBID, err)
			}
			return []interface{}{c.PDBID, c.ComboID, c.ChainCombo, c.AbChainNo, string(distJSON)}, nil
		})
}

// ListRegionNames returns the distinct stored region names, sorted.
func (s *SQLiteStorage) ListRegionNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT region_name FROM align_vfrag ORDER BY region_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ListReferenceRegions returns aligned regions in insertion order, optionally
// restricted to the given region names.
func (s *SQLiteStorage) ListReferenceRegions(ctx context.Context, regionNames ...string) ([]models.ReferenceRegion, error) {
	query := `SELECT pdb_id, COALESCE(chain_id, ''), chain_no, region_name, seq_from, seq_to, COALESCE(seq, '')
		 FROM align_vfrag`
	args := make([]interface{}, 0, len(regionNames))
	if len(regionNames) > 0 {
		marks := make([]string, len(regionNames))
		for i, n := range regionNames {
			marks[i] = "?"
			args = append(args, n)
		}
		query += ` WHERE region_name IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []models.ReferenceRegion
	for rows.Next() {
		var r models.ReferenceRegion
		if err := rows.Scan(&r.StructureID, &r.ChainID, &r.ChainIndex, &r.RegionName, &r.SeqFrom, &r.SeqTo, &r.Seq); err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// ListCandidateMotifs returns motifs in insertion order.
func (s *SQLiteStorage) ListCandidateMotifs(ctx context.Context) ([]models.CandidateMotif, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pdb_id, chain_no, start_pos, end_pos, COALESCE(seq, ''), COALESCE(pair_aa, ''),
		        COALESCE(pair_chain_no, 0), COALESCE(combo_id, 0)
		 FROM motifs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var motifs []models.CandidateMotif
	for rows.Next() {
		var m models.CandidateMotif
		if err := rows.Scan(&m.StructureID, &m.ChainIndex, &m.Start, &m.End, &m.Seq, &m.PairSeq, &m.PairChainIndex, &m.ComboID); err != nil {
			return nil, err
		}
		motifs = append(motifs, m)
	}
	return motifs, rows.Err()
}

// ListComplexDistances returns distance lists in insertion order.
func (s *SQLiteStorage) ListComplexDistances(ctx context.Context) ([]models.ComplexDistances, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pdb_id, combo_id, COALESCE(chain_combo, ''), COALESCE(ab_chain_no, 0), dist
		 FROM complex_distances ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var complexes []models.ComplexDistances
	for rows.Next() {
		var c models.ComplexDistances
		var distJSON string
		if err := rows.Scan(&c.PDBID, &c.ComboID, &c.ChainCombo, &c.AbChainNo, &distJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(distJSON), &c.Dist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal distances of %s/%d: %w", c.PDBID, c.ComboID, err)
		}
		complexes = append(complexes, c)
	}
	return complexes, rows.Err()
}

func insertRun(ctx context.Context, tx *sql.Tx, run *models.Run) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, params, rows, errors, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, string(paramsJSON), run.Rows, run.Errors, run.CreatedAt,
	)
	return err
}

func insertItemErrors(ctx context.Context, tx *sql.Tx, runID string, errs []models.ItemError) error {
	if len(errs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO item_errors (run_id, ordinal, item_key, kind, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range errs {
		if _, err := stmt.ExecContext(ctx, runID, i, e.Key, e.Kind, e.Message); err != nil {
			return err
		}
	}
	return nil
}

// SaveMatchRun stores the run, its match rows and its item errors atomically.
// Rows and Errors of run are set from the slices.
func (s *SQLiteStorage) SaveMatchRun(ctx context.Context, run *models.Run, results []models.MatchResult, errs []models.ItemError) error {
	run.Kind = models.RunKindMatch
	run.Rows, run.Errors = len(results), len(errs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_results (run_id, ordinal, pdb_id, chain_id, chain_no, region_name, seq_from, seq_to, seq,
		 seq_len, matched, aa, pair_aa, exp_start, exp_end, pair_chain_no, combo_id, overlap)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.StructureID, r.ChainID, r.ChainIndex, r.RegionName,
			r.SeqFrom, r.SeqTo, r.Seq, r.SeqLen, r.Matched, r.AA, r.PairAA, r.ExpStart, r.ExpEnd,
			r.PairChainNo, r.ComboID, r.Overlap); err != nil {
			return err
		}
	}
	if err := insertItemErrors(ctx, tx, run.ID, errs); err != nil {
		return err
	}
	return tx.Commit()
}

// nullable maps an absent feature to SQL NULL.
func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// SaveDistanceRun stores the run, its distance records and its item errors
// atomically. Absent features are stored as NULL.
func (s *SQLiteStorage) SaveDistanceRun(ctx context.Context, run *models.Run, records []models.DistanceRecord, errs []models.ItemError) error {
	run.Kind = models.RunKindDistance
	run.Rows, run.Errors = len(records), len(errs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO distance_records (run_id, ordinal, pdb_id, combo_id, chain_combo, ab_chain_no, count,
		 rank1, rank2, rank3, rank4, rank5, rank10, mean5, mean10)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range records {
		d := &records[i]
		if _, err := stmt.ExecContext(ctx, run.ID, i, d.PDBID, d.ComboID, d.ChainCombo, d.AbChainNo, d.Count,
			nullable(d.Rank1), nullable(d.Rank2), nullable(d.Rank3), nullable(d.Rank4), nullable(d.Rank5),
			nullable(d.Rank10), nullable(d.Mean5), nullable(d.Mean10)); err != nil {
			return err
		}
	}
	if err := insertItemErrors(ctx, tx, run.ID, errs); err != nil {
		return err
	}
	return tx.Commit()
}

func scanRun(scan func(dest ...interface{}) error) (*models.Run, error) {
	var run models.Run
	var paramsJSON sql.NullString
	if err := scan(&run.ID, &run.Kind, &paramsJSON, &run.Rows, &run.Errors, &run.CreatedAt); err != nil {
		return nil, err
	}
	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &run.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run params: %w", err)
		}
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, params, rows, errors, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns runs newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, params, rows, errors, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListMatchResults returns the match rows of a run in their original order.
func (s *SQLiteStorage) ListMatchResults(ctx context.Context, runID string) ([]models.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pdb_id, COALESCE(chain_id, ''), chain_no, region_name, seq_from, seq_to, COALESCE(seq, ''),
		        seq_len, matched, aa, pair_aa, exp_start, exp_end, pair_chain_no, combo_id, overlap
		 FROM match_results WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		var r models.MatchResult
		if err := rows.Scan(&r.StructureID, &r.ChainID, &r.ChainIndex, &r.RegionName, &r.SeqFrom, &r.SeqTo, &r.Seq,
			&r.SeqLen, &r.Matched, &r.AA, &r.PairAA, &r.ExpStart, &r.ExpEnd, &r.PairChainNo, &r.ComboID, &r.Overlap); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListDistanceRecords returns the distance records of a run in their original order.
func (s *SQLiteStorage) ListDistanceRecords(ctx context.Context, runID string) ([]models.DistanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pdb_id, combo_id, COALESCE(chain_combo, ''), COALESCE(ab_chain_no, 0), count,
		        rank1, rank2, rank3, rank4, rank5, rank10, mean5, mean10
		 FROM distance_records WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DistanceRecord
	for rows.Next() {
		var d models.DistanceRecord
		var f [8]sql.NullFloat64
		if err := rows.Scan(&d.PDBID, &d.ComboID, &d.ChainCombo, &d.AbChainNo, &d.Count,
			&f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &f[7]); err != nil {
			return nil, err
		}
		d.Rank1, d.Rank2, d.Rank3, d.Rank4 = fromNullable(f[0]), fromNullable(f[1]), fromNullable(f[2]), fromNullable(f[3])
		d.Rank5, d.Rank10, d.Mean5, d.Mean10 = fromNullable(f[4]), fromNullable(f[5]), fromNullable(f[6]), fromNullable(f[7])
		records = append(records, d)
	}
	return records, rows.Err()
}

// ListItemErrors returns the item errors recorded for a run.
func (s *SQLiteStorage) ListItemErrors(ctx context.Context, runID string) ([]models.ItemError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_key, kind, COALESCE(message, '') FROM item_errors WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []models.ItemError
	for rows.Next() {
		var e models.ItemError
		if err := rows.Scan(&e.Key, &e.Kind, &e.Message); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// CountInputs returns row counts of every input family and of runs.
func (s *SQLiteStorage) CountInputs(ctx context.Context) (*models.InputCounts, error) {
	var c models.InputCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM align_vfrag),
		        (SELECT COUNT(*) FROM motifs),
		        (SELECT COUNT(*) FROM complex_distances),
		        (SELECT COUNT(*) FROM runs)`,
	).Scan(&c.Regions, &c.Motifs, &c.Complexes, &c.Runs)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
