package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS videos (
	video_id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL DEFAULT '',
	duration REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS words (
	word_id INTEGER PRIMARY KEY AUTOINCREMENT,
	chinese TEXT NOT NULL UNIQUE,
	pinyin TEXT NOT NULL DEFAULT '',
	translation TEXT NOT NULL DEFAULT '',
	hsk_level INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS word_occurrences (
	occurrence_id INTEGER PRIMARY KEY AUTOINCREMENT,
	word_id INTEGER NOT NULL REFERENCES words(word_id),
	video_id INTEGER NOT NULL REFERENCES videos(video_id),
	sentence TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	start_time REAL NOT NULL DEFAULT 0,
	end_time REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_occurrences_video ON word_occurrences(video_id);
CREATE INDEX IF NOT EXISTS idx_occurrences_word ON word_occurrences(word_id);

CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS word_status (
	user_id INTEGER NOT NULL REFERENCES users(user_id),
	word_id INTEGER NOT NULL REFERENCES words(word_id),
	status TEXT NOT NULL DEFAULT 'unknown',
	review_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, word_id)
);

CREATE TABLE IF NOT EXISTS video_stats (
	video_id INTEGER PRIMARY KEY REFERENCES videos(video_id),
	total_words INTEGER NOT NULL,
	unique_words INTEGER NOT NULL,
	hsk1_count INTEGER NOT NULL,
	hsk2_count INTEGER NOT NULL,
	hsk3_count INTEGER NOT NULL,
	hsk4_count INTEGER NOT NULL,
	hsk5_count INTEGER NOT NULL,
	hsk6_count INTEGER NOT NULL,
	non_hsk_count INTEGER NOT NULL
)
`

// Store is the durable relational state for videos, canonical words,
// occurrences, per-user status and aggregated stats. Every mutating
// method commits before returning.
type Store struct {
	db *sqlx.DB
}

// Open creates the parent directory if needed, opens (or creates) the
// SQLite file and runs migrations. WAL mode plus a busy timeout keeps
// the store usable from a query path while an ingestion writes on
// another.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	conn, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.ensureDefaultUser(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed default user: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	for _, stmt := range strings.Split(migrationsSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ensureDefaultUser guarantees exactly one default user exists for the
// single-user mode; re-running it is a no-op.
func (s *Store) ensureDefaultUser() error {
	var id int64
	err := s.db.Get(&id, `SELECT user_id FROM users ORDER BY user_id LIMIT 1`)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO users (name) VALUES ('default')`)
	return err
}

// DefaultUserID returns the seeded default user.
func (s *Store) DefaultUserID() (int64, error) {
	var id int64
	if err := s.db.Get(&id, `SELECT user_id FROM users ORDER BY user_id LIMIT 1`); err != nil {
		return 0, fmt.Errorf("default user: %w", err)
	}
	return id, nil
}
