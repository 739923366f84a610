package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

// SQLiteConfig holds configuration for the SQLite stores
type SQLiteConfig struct {
	Path string
}

// openSQLite opens a database in WAL mode, creating its directory
func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, mdwerror.Wrap(err, "failed to create directory").
			WithCode(mdwerror.CodeDatabaseError).
			WithOperation("store.openSQLite").
			WithDetail("path", path)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, dbError(err, "failed to open database")
	}
	return db, nil
}

// SQLiteScriptStore implements ScriptStore using SQLite
type SQLiteScriptStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteScriptStore creates a new SQLite based script library
func NewSQLiteScriptStore(cfg SQLiteConfig) (*SQLiteScriptStore, error) {
	db, err := openSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}

	store := &SQLiteScriptStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError(err, "failed to initialize schema")
	}
	return store, nil
}

func (s *SQLiteScriptStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scripts (
		name TEXT PRIMARY KEY COLLATE NOCASE,
		body TEXT NOT NULL,
		line_count INTEGER NOT NULL,
		updated DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Script returns the lines of a script
func (s *SQLiteScriptStore) Script(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM scripts WHERE name = ?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, dbError(err, "failed to load script")
	}
	if body == "" {
		return nil, nil
	}
	return strings.Split(body, "\n"), nil
}

// List returns all scripts sorted by name
func (s *SQLiteScriptStore) List(ctx context.Context) ([]ScriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, line_count, updated FROM scripts ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, dbError(err, "failed to list scripts")
	}
	defer rows.Close()

	var infos []ScriptInfo
	for rows.Next() {
		var info ScriptInfo
		if err := rows.Scan(&info.Name, &info.Lines, &info.Updated); err != nil {
			return nil, dbError(err, "failed to scan script")
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to list scripts")
	}
	return infos, nil
}

// Save creates or replaces a script
func (s *SQLiteScriptStore) Save(ctx context.Context, name string, lines []string) error {
	if err := validName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scripts (name, body, line_count, updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body,
			line_count = excluded.line_count, updated = excluded.updated
	`, name, strings.Join(lines, "\n"), len(lines), time.Now().UTC())
	if err != nil {
		return dbError(err, "failed to save script")
	}
	return nil
}

// Delete removes a script
func (s *SQLiteScriptStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE name = ?`, name)
	if err != nil {
		return dbError(err, "failed to delete script")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(name)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteScriptStore) Close() error {
	return s.db.Close()
}
