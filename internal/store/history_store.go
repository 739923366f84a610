package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/msto63/mExec/internal/engine"
)

// HistoryFilter defines criteria for filtering runs
type HistoryFilter struct {
	Script string
	Status engine.Status
	Since  time.Time
	Limit  int
}

// HistoryStore defines the interface for run history persistence
type HistoryStore interface {
	engine.RunRecorder
	Recent(ctx context.Context, filter HistoryFilter) ([]engine.RunRecord, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteHistoryStore implements HistoryStore using SQLite
type SQLiteHistoryStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteHistoryStore creates a new SQLite based history store
func NewSQLiteHistoryStore(cfg SQLiteConfig) (*SQLiteHistoryStore, error) {
	db, err := openSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}

	store := &SQLiteHistoryStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError(err, "failed to initialize schema")
	}
	return store, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		parent_id TEXT,
		script TEXT NOT NULL,
		flags INTEGER NOT NULL,
		started DATETIME NOT NULL,
		finished DATETIME NOT NULL,
		status TEXT NOT NULL,
		error_code TEXT,
		exec_count INTEGER NOT NULL,
		goto_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_script ON runs(script);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished run
func (s *SQLiteHistoryStore) Record(ctx context.Context, run engine.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, parent_id, script, flags, started, finished, status, error_code, exec_count, goto_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, nullString(run.ParentID), run.Script, int64(run.Flags), run.Started.UTC(), run.Finished.UTC(),
		string(run.Status), nullString(run.ErrorCode), run.ExecCount, run.GotoCount)
	if err != nil {
		return dbError(err, "failed to insert run")
	}
	return nil
}

// Recent returns runs matching filter, newest first
func (s *SQLiteHistoryStore) Recent(ctx context.Context, filter HistoryFilter) ([]engine.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, parent_id, script, flags, started, finished, status, error_code, exec_count, goto_count FROM runs WHERE 1=1`
	var args []interface{}

	if filter.Script != "" {
		query += " AND script = ?"
		args = append(args, filter.Script)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query += " AND started >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY started DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query runs")
	}
	defer rows.Close()

	var runs []engine.RunRecord
	for rows.Next() {
		var (
			run       engine.RunRecord
			parentID  sql.NullString
			errorCode sql.NullString
			flags     int64
			status    string
		)
		if err := rows.Scan(&run.ID, &parentID, &run.Script, &flags, &run.Started, &run.Finished,
			&status, &errorCode, &run.ExecCount, &run.GotoCount); err != nil {
			return nil, dbError(err, "failed to scan run")
		}
		run.ParentID = parentID.String
		run.ErrorCode = errorCode.String
		run.Flags = engine.RunFlags(flags)
		run.Status = engine.Status(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to query runs")
	}
	return runs, nil
}

// Prune removes runs older than the given duration
func (s *SQLiteHistoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE finished < ?`, cutoff)
	if err != nil {
		return 0, dbError(err, "failed to prune runs")
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MemoryHistoryStore implements HistoryStore in memory, used when no
// history path is configured
type MemoryHistoryStore struct {
	runs []engine.RunRecord
	mu   sync.RWMutex
}

// NewMemoryHistoryStore creates an empty in-memory history
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

// Record stores a finished run
func (s *MemoryHistoryStore) Record(ctx context.Context, run engine.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// Recent returns runs matching filter, newest first
func (s *MemoryHistoryStore) Recent(ctx context.Context, filter HistoryFilter) ([]engine.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []engine.RunRecord
	for i := len(s.runs) - 1; i >= 0; i-- {
		run := s.runs[i]
		if filter.Script != "" && run.Script != filter.Script {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && run.Started.Before(filter.Since) {
			continue
		}
		out = append(out, run)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Prune removes runs older than the given duration
func (s *MemoryHistoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := s.runs[:0]
	var removed int64
	for _, run := range s.runs {
		if run.Finished.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, run)
	}
	s.runs = kept
	return removed, nil
}

// Close is a no-op
func (s *MemoryHistoryStore) Close() error {
	return nil
}
