package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS media (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	latitude   REAL NOT NULL DEFAULT 0,
	longitude  REAL NOT NULL DEFAULT 0,
	zoom       INTEGER NOT NULL DEFAULT 0,
	placed     INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_media_updated_at ON media(updated_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts an unplaced record.
func (s *SQLiteStore) Create(ctx context.Context, filename string) (*Media, error) {
	m := &Media{ID: uuid.New().String(), Filename: filename, UpdatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media (id, filename, updated_at) VALUES (?, ?, ?)`,
		m.ID, m.Filename, m.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert media")
	}
	return m, nil
}

// Get loads a record by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Media, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, latitude, longitude, zoom, placed, updated_at FROM media WHERE id = ?`, id)
	m, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get media %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get media %s", id)
	}
	return m, nil
}

// List returns records, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Media, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, latitude, longitude, zoom, placed, updated_at FROM media ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
		filter.limit(), filter.offset(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list media")
	}
	defer rows.Close() //nolint:errcheck

	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan media")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate media")
}

// Save writes the position and filename of an existing record.
func (s *SQLiteStore) Save(ctx context.Context, m *Media) error {
	if m == nil {
		return eris.New("sqlite: nil media")
	}
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE media SET filename = ?, latitude = ?, longitude = ?, zoom = ?, placed = ?, updated_at = ? WHERE id = ?`,
		m.Filename, m.Latitude, m.Longitude, m.Zoom, m.Placed, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update media %s", m.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: update media %s", m.ID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMedia(row scannable) (*Media, error) {
	var m Media
	if err := row.Scan(&m.ID, &m.Filename, &m.Latitude, &m.Longitude, &m.Zoom, &m.Placed, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
