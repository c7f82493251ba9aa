package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"RallyScope/internal/model"
)

// SQLiteRecorder persists batch runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a batch is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			analyzed    INTEGER,
			skipped     TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS instrument_results (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			cap_label   TEXT,
			market_cap  REAL,
			days        INTEGER,
			peaks       INTEGER,
			valleys     INTEGER,
			windows     INTEGER,
			analyzed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON instrument_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_symbol ON instrument_results(symbol)`,

		`CREATE TABLE IF NOT EXISTS metric_scores (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			result_id INTEGER NOT NULL,
			metric    TEXT NOT NULL,
			score     REAL,
			used      INTEGER,
			missing   INTEGER,
			reason    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_result ON metric_scores(result_id)`,

		`CREATE TABLE IF NOT EXISTS rally_windows (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			result_id INTEGER NOT NULL,
			valley    INTEGER NOT NULL,
			peak      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_windows_result ON rally_windows(result_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun upserts the run header so it can be written once at start and
// again when the batch finishes.
func (r *SQLiteRecorder) RecordRun(run *model.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Unix()
	}
	_, err := r.db.Exec(`INSERT INTO runs (id, started_at, finished_at, analyzed, skipped)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			analyzed    = excluded.analyzed,
			skipped     = excluded.skipped`,
		run.ID, run.StartedAt.Unix(), finished, len(run.Results), strings.Join(run.Skipped, ","),
	)
	return err
}

// RecordResult stores one instrument's scores and windows in a single
// transaction. NaN scores are stored as NULL.
func (r *SQLiteRecorder) RecordResult(runID string, res *model.InstrumentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inst := res.Instrument
	out, err := tx.Exec(`INSERT INTO instrument_results
		(run_id, symbol, cap_label, market_cap, days, peaks, valleys, windows, analyzed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		runID, inst.Symbol, string(inst.Label), inst.MarketCap, res.Days,
		len(res.Peaks), len(res.Valleys), len(res.Windows), res.AnalyzedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", inst.Symbol, err)
	}
	resultID, err := out.LastInsertId()
	if err != nil {
		return err
	}

	for _, s := range res.Scores {
		if _, err := tx.Exec(`INSERT INTO metric_scores
			(result_id, metric, score, used, missing, reason) VALUES (?,?,?,?,?,?)`,
			resultID, s.Metric, nullable(s.Score), s.Used, s.Missing, string(s.Reason),
		); err != nil {
			return fmt.Errorf("insert score %s/%s: %w", inst.Symbol, s.Metric, err)
		}
	}
	for _, w := range res.Windows {
		if _, err := tx.Exec(`INSERT INTO rally_windows (result_id, valley, peak) VALUES (?,?,?)`,
			resultID, w.Valley, w.Peak,
		); err != nil {
			return fmt.Errorf("insert window %s: %w", inst.Symbol, err)
		}
	}
	return tx.Commit()
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
