package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/deusflow/logistics-alert/internal/logger"
)

const pingTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS sent_news (
	position INTEGER NOT NULL,
	title    TEXT NOT NULL,
	url      TEXT NOT NULL,
	sent_at  TEXT NOT NULL
)`

// SQLBackend stores records in a sent_news table. Save rewrites the table in
// one transaction, so the stored list always equals one Save call.
type SQLBackend struct {
	db     *sql.DB
	name   string
	bind   func(n int) string
	schema bool
}

// NewSQLiteBackend opens (or creates) an embedded SQLite database at path.
func NewSQLiteBackend(path string) (*SQLBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLBackend{
		db:   db,
		name: "sqlite:" + path,
		bind: func(int) string { return "?" },
	}, nil
}

// NewPostgresBackend connects to PostgreSQL using a lib/pq connection string.
// An unreachable server is logged, not returned: Load and Save report the
// failure until the server comes back.
func NewPostgresBackend(dsn string) (*SQLBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("postgres unreachable, history unavailable until it responds", "error", err)
	}

	return &SQLBackend{
		db:   db,
		name: "postgres",
		bind: func(n int) string { return "$" + strconv.Itoa(n) },
	}, nil
}

func (b *SQLBackend) String() string {
	return b.name
}

func (b *SQLBackend) ensureSchema() error {
	if b.schema {
		return nil
	}
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	b.schema = true
	return nil
}

func (b *SQLBackend) Load() ([]Record, error) {
	if err := b.ensureSchema(); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(`SELECT title, url, sent_at FROM sent_news ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Title, &r.URL, &r.SentAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}

func (b *SQLBackend) Save(records []Record) error {
	if err := b.ensureSchema(); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sent_news`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO sent_news (position, title, url, sent_at) VALUES (%s, %s, %s, %s)`,
		b.bind(1), b.bind(2), b.bind(3), b.bind(4))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.Title, r.URL, r.SentAt); err != nil {
			return fmt.Errorf("failed to insert history record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (b *SQLBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
