package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on PostgreSQL with PostGIS. The location is
// kept in a geometry(Point, 4326) column next to the plain coordinates.
type PostgresStore struct {
	pool Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres connects a pool to connString.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS media (
	id         UUID PRIMARY KEY,
	filename   TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude  DOUBLE PRECISION NOT NULL DEFAULT 0,
	zoom       INTEGER NOT NULL DEFAULT 0,
	location   geometry(Point, 4326),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_media_location ON media USING GIST (location);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Create inserts an unplaced record. Its location stays NULL until Save.
func (s *PostgresStore) Create(ctx context.Context, filename string) (*Media, error) {
	m := &Media{ID: uuid.New().String(), Filename: filename, UpdatedAt: time.Now().UTC()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO media (id, filename, updated_at) VALUES ($1, $2, $3)`,
		m.ID, m.Filename, m.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert media")
	}
	return m, nil
}

// Get loads a record by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Media, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id::text, filename, latitude, longitude, zoom, location IS NOT NULL, updated_at FROM media WHERE id = $1`, id)
	m, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get media %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get media %s", id)
	}
	return m, nil
}

// List returns records, most recently updated first.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Media, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, filename, latitude, longitude, zoom, location IS NOT NULL, updated_at FROM media ORDER BY updated_at DESC, id LIMIT $1 OFFSET $2`,
		filter.limit(), filter.offset(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list media")
	}
	defer rows.Close()

	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan media")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate media")
}

// Save writes the position, the EWKB point and the filename. The location
// of an unplaced record stays NULL.
func (s *PostgresStore) Save(ctx context.Context, m *Media) error {
	if m == nil {
		return eris.New("postgres: nil media")
	}
	var location []byte
	if m.Placed {
		var err error
		if location, err = m.EWKB(); err != nil {
			return err
		}
	}
	m.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE media SET filename = $1, latitude = $2, longitude = $3, zoom = $4, location = ST_GeomFromEWKB($5), updated_at = $6 WHERE id = $7`,
		m.Filename, m.Latitude, m.Longitude, m.Zoom, location, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update media %s", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update media %s", m.ID)
	}
	return nil
}

// Within returns the records whose location lies within radius metres of
// the given point, nearest first.
func (s *PostgresStore) Within(ctx context.Context, lat, lng, radius float64, limit int) ([]Media, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, filename, latitude, longitude, zoom, location IS NOT NULL, updated_at FROM media
		WHERE location IS NOT NULL AND ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326) LIMIT $4`,
		lng, lat, radius, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: media within radius")
	}
	defer rows.Close()

	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan media")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate media")
}
