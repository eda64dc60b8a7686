// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Keys of the kv table.
const (
	KeyCounters          = "counters"
	KeyKPIValue          = "kpiValue"
	KeyKPINeeded         = "kpiNeeded"
	KeyNightMode         = "nightMode"
	KeyCalculatorVisible = "isCalculatorVisible"
)

// Store wraps SQLite access for the calculator state.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create db directory", goerr.V("dir", dir))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open db", goerr.V("path", path))
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			position INTEGER PRIMARY KEY,
			date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history_points (
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			points INTEGER NOT NULL,
			PRIMARY KEY (position, category)
		);`,
		`CREATE TABLE IF NOT EXISTS salvtm_history (
			id INTEGER PRIMARY KEY,
			date TEXT NOT NULL,
			value INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_date ON history(date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return goerr.Wrap(err, "failed to migrate db")
		}
	}
	return nil
}

// Load reads the whole persisted state. Missing keys fall back to defaults.
func (s *Store) Load(ctx context.Context) (model.State, error) {
	state := model.State{
		Tally:    model.NewTally(),
		Settings: model.DefaultSettings(),
	}

	kv, err := s.loadKV(ctx)
	if err != nil {
		return model.State{}, err
	}
	if raw, ok := kv[KeyCounters]; ok {
		var counters map[string]int
		if err := json.Unmarshal([]byte(raw), &counters); err != nil {
			return model.State{}, goerr.Wrap(err, "failed to decode counters", goerr.V("raw", raw))
		}
		for key, count := range counters {
			c := model.Category(key)
			if _, ok := model.Lookup(c); !ok {
				ctxlog.From(ctx).Warn("ignoring unknown persisted counter", slog.String("category", key))
				continue
			}
			state.Tally.Counters[c] = max(0, count)
		}
	}
	if err := decodeKV(kv, KeyKPIValue, &state.Tally.Value); err != nil {
		return model.State{}, err
	}
	if err := decodeKV(kv, KeyKPINeeded, &state.Tally.Needed); err != nil {
		return model.State{}, err
	}
	if err := decodeKV(kv, KeyNightMode, &state.Settings.NightMode); err != nil {
		return model.State{}, err
	}
	if err := decodeKV(kv, KeyCalculatorVisible, &state.Settings.CalculatorVisible); err != nil {
		return model.State{}, err
	}

	if state.History, err = s.loadHistory(ctx); err != nil {
		return model.State{}, err
	}
	if state.Archive, err = s.loadArchive(ctx); err != nil {
		return model.State{}, err
	}
	return state, nil
}

func (s *Store) loadKV(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query kv")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, goerr.Wrap(err, "failed to scan kv")
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read kv")
	}
	return out, nil
}

func decodeKV(kv map[string]string, key string, target any) error {
	raw, ok := kv[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return goerr.Wrap(err, "failed to decode persisted value", goerr.V("key", key), goerr.V("raw", raw))
	}
	return nil
}

func (s *Store) loadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.position, h.date, p.category, p.points
		 FROM history h
		 LEFT JOIN history_points p ON p.position = h.position
		 ORDER BY h.position`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query history")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var (
		entries []model.HistoryEntry
		lastPos int64 = -1
	)
	for rows.Next() {
		var (
			pos      int64
			date     string
			category sql.NullString
			points   sql.NullInt64
		)
		if err := rows.Scan(&pos, &date, &category, &points); err != nil {
			return nil, goerr.Wrap(err, "failed to scan history")
		}
		if pos != lastPos {
			entries = append(entries, model.HistoryEntry{Date: date, Points: map[model.Category]int{}})
			lastPos = pos
		}
		if category.Valid && points.Valid {
			entries[len(entries)-1].Points[model.Category(category.String)] = int(points.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read history")
	}
	return entries, nil
}

func (s *Store) loadArchive(ctx context.Context) ([]model.ArchiveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, value FROM salvtm_history ORDER BY id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query salvTM history")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.ArchiveRecord
	for rows.Next() {
		var rec model.ArchiveRecord
		if err := rows.Scan(&rec.Date, &rec.Value); err != nil {
			return nil, goerr.Wrap(err, "failed to scan salvTM history")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read salvTM history")
	}
	return out, nil
}

// SaveTally persists counters and both aggregates in one transaction.
func (s *Store) SaveTally(ctx context.Context, t model.Tally) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return putTally(ctx, tx, t)
	})
}

// Rollover appends rec to the salvTM archive and persists the reset tally
// in one transaction.
func (s *Store) Rollover(ctx context.Context, rec model.ArchiveRecord, t model.Tally) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO salvtm_history (date, value) VALUES (?, ?)`, rec.Date, rec.Value); err != nil {
			return goerr.Wrap(err, "failed to append salvTM history", goerr.V("date", rec.Date))
		}
		return putTally(ctx, tx, t)
	})
}

// SaveHistory replaces the whole ledger.
func (s *Store) SaveHistory(ctx context.Context, entries []model.HistoryEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history_points`); err != nil {
			return goerr.Wrap(err, "failed to clear history points")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
			return goerr.Wrap(err, "failed to clear history")
		}
		if len(entries) == 0 {
			return nil
		}

		entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO history (position, date) VALUES (?, ?)`)
		if err != nil {
			return goerr.Wrap(err, "failed to prepare history insert")
		}
		defer func() {
			if cerr := entryStmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		pointStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO history_points (position, category, points) VALUES (?, ?, ?)`)
		if err != nil {
			return goerr.Wrap(err, "failed to prepare history points insert")
		}
		defer func() {
			if cerr := pointStmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()

		for pos, e := range entries {
			if _, err := entryStmt.ExecContext(ctx, pos, e.Date); err != nil {
				return goerr.Wrap(err, "failed to insert history entry", goerr.V("date", e.Date))
			}
			for _, info := range model.Catalog {
				if _, err := pointStmt.ExecContext(ctx, pos, string(info.Key), e.Point(info.Key)); err != nil {
					return goerr.Wrap(err, "failed to insert history points", goerr.V("date", e.Date))
				}
			}
		}
		return nil
	})
}

// SaveSettings persists the UI flags.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putKV(ctx, tx, KeyNightMode, settings.NightMode); err != nil {
			return err
		}
		return putKV(ctx, tx, KeyCalculatorVisible, settings.CalculatorVisible)
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func putTally(ctx context.Context, tx *sql.Tx, t model.Tally) error {
	counters := make(map[string]int, len(model.Catalog))
	for _, info := range model.Catalog {
		counters[string(info.Key)] = t.Counters[info.Key]
	}
	if err := putKV(ctx, tx, KeyCounters, counters); err != nil {
		return err
	}
	if err := putKV(ctx, tx, KeyKPIValue, t.Value); err != nil {
		return err
	}
	return putKV(ctx, tx, KeyKPINeeded, t.Needed)
}

func putKV(ctx context.Context, tx *sql.Tx, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return goerr.Wrap(err, "failed to encode value", goerr.V("key", key))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(raw)); err != nil {
		return goerr.Wrap(err, "failed to write kv", goerr.V("key", key))
	}
	return nil
}
