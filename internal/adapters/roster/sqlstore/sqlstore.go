// Package sqlstore reads the roster from a SQLite people table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/overtime/internal/adapters/roster"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"

	_ "modernc.org/sqlite"
)

const providerName = "sql"

const schema = `
CREATE TABLE IF NOT EXISTS people (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	position     INTEGER NOT NULL DEFAULT 0
)`

const listQuery = `SELECT id, display_name FROM people WHERE active = 1 ORDER BY position, id`

// Store implements roster.Provider over database/sql.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens the SQLite database at dsn and makes sure the people table
// exists. ":memory:" gives an empty in-memory roster.
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite limitation
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create people table: %w", err)
	}
	return New(db, log), nil
}

// New wraps an open handle. The people table must already exist.
func New(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, logger: log}
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements roster.Provider.
func (s *Store) Name() string { return providerName }

// ListPeople implements roster.Provider.
func (s *Store) ListPeople(ctx context.Context) roster.Result {
	people, err := s.list(ctx)
	if err != nil {
		s.logger.Warn(ctx, "roster query failed", logger.Error(err))
		return roster.Unavailable(err)
	}
	return roster.Available(people)
}

func (s *Store) list(ctx context.Context) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// Upsert inserts or updates a person.
func (s *Store) Upsert(ctx context.Context, p model.Person, position int, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, display_name, active, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			active = excluded.active,
			position = excluded.position`,
		p.ID, p.DisplayName, boolToInt(active), position)
	if err != nil {
		return fmt.Errorf("upsert person %s: %w", p.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
