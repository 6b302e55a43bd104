package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/crimengo/crimengo/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS incidents (
	id                   TEXT PRIMARY KEY,
	case_number          TEXT,
	date                 TIMESTAMPTZ,
	block                TEXT,
	iucr                 TEXT,
	primary_type         TEXT,
	description          TEXT,
	location_description TEXT,
	arrest               BOOLEAN NOT NULL DEFAULT FALSE,
	domestic             BOOLEAN NOT NULL DEFAULT FALSE,
	beat                 TEXT,
	district             TEXT,
	ward                 TEXT,
	community_area       TEXT,
	fbi_code             TEXT,
	year                 INTEGER,
	updated_on           TIMESTAMPTZ,
	latitude             DOUBLE PRECISION,
	longitude            DOUBLE PRECISION,
	location             TEXT,
	source               TEXT
);

CREATE TABLE IF NOT EXISTS zones (
	name       TEXT PRIMARY KEY,
	boundary   JSONB NOT NULL,
	geom       BYTEA,
	center_lat DOUBLE PRECISION NOT NULL,
	center_lon DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incidents_date ON incidents(date);
CREATE INDEX IF NOT EXISTS idx_incidents_primary_type ON incidents(primary_type);
CREATE INDEX IF NOT EXISTS idx_incidents_source ON incidents(source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgUpsertIncident = `INSERT INTO incidents (` + incidentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	ON CONFLICT (id) DO UPDATE SET
		case_number = EXCLUDED.case_number,
		date = EXCLUDED.date,
		block = EXCLUDED.block,
		iucr = EXCLUDED.iucr,
		primary_type = EXCLUDED.primary_type,
		description = EXCLUDED.description,
		location_description = EXCLUDED.location_description,
		arrest = EXCLUDED.arrest,
		domestic = EXCLUDED.domestic,
		beat = EXCLUDED.beat,
		district = EXCLUDED.district,
		ward = EXCLUDED.ward,
		community_area = EXCLUDED.community_area,
		fbi_code = EXCLUDED.fbi_code,
		year = EXCLUDED.year,
		updated_on = EXCLUDED.updated_on,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		location = EXCLUDED.location,
		source = EXCLUDED.source`

func (s *PostgresStore) UpsertIncidents(ctx context.Context, incidents []model.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, in := range incidents {
		if _, err := tx.Exec(ctx, pgUpsertIncident,
			in.ID, in.CaseNumber, in.Date.UTC(), in.Block, in.IUCR, in.PrimaryType,
			in.Description, in.LocationDescription, in.Arrest, in.Domestic, in.Beat,
			in.District, in.Ward, in.CommunityArea, in.FBICode, in.Year,
			in.UpdatedOn.UTC(), in.Latitude, in.Longitude, in.Location, string(in.Source),
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert incident %s", in.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert")
	}
	return len(incidents), nil
}

func (s *PostgresStore) ListIncidents(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.PrimaryType != "" {
		query += ` AND primary_type = ` + arg(filter.PrimaryType)
	}
	if filter.ArrestOnly {
		query += ` AND arrest`
	}
	if filter.Source != "" {
		query += ` AND source = ` + arg(string(filter.Source))
	}
	if filter.Since != nil {
		query += ` AND date >= ` + arg(filter.Since.UTC())
	}
	query += ` ORDER BY date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list incidents")
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan incident")
		}
		incidents = append(incidents, *in)
	}
	return incidents, eris.Wrap(rows.Err(), "postgres: list incidents iterate")
}

func (s *PostgresStore) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
	in, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get incident %s", id)
	}
	return in, nil
}

func (s *PostgresStore) DeleteIncident(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete incident %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CountIncidents(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count incidents")
}

func (s *PostgresStore) Summary(ctx context.Context) (*model.Summary, error) {
	var sum model.Summary
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE arrest),
			COUNT(*) FILTER (WHERE domestic),
			MAX(date)
		FROM incidents`).Scan(&sum.Total, &sum.Arrests, &sum.Domestic, &latest)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary")
	}
	if latest != nil {
		t := latest.UTC()
		sum.LatestDate = &t
	}
	return &sum, nil
}

func (s *PostgresStore) TopCategories(ctx context.Context, limit int) ([]model.CategoryCount, error) {
	return s.topCounts(ctx, "primary_type", limit)
}

func (s *PostgresStore) TopLocations(ctx context.Context, limit int) ([]model.CategoryCount, error) {
	return s.topCounts(ctx, "location_description", limit)
}

func (s *PostgresStore) topCounts(ctx context.Context, column string, limit int) ([]model.CategoryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	// column is one of two fixed identifiers, never user input.
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(`+column+`, ''), 'UNKNOWN') AS label, COUNT(*) AS n
		FROM incidents
		GROUP BY label
		ORDER BY n DESC, label ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: top %s", column)
	}
	defer rows.Close()

	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan top %s", column)
		}
		counts = append(counts, c)
	}
	return counts, eris.Wrapf(rows.Err(), "postgres: top %s iterate", column)
}

func (s *PostgresStore) UpsertZone(ctx context.Context, zone model.Zone) error {
	boundary, err := json.Marshal(zone.Boundary)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal zone %s", zone.Name)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO zones (name, boundary, center_lat, center_lon)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			boundary = EXCLUDED.boundary,
			center_lat = EXCLUDED.center_lat,
			center_lon = EXCLUDED.center_lon`,
		zone.Name, boundary, zone.CenterLat, zone.CenterLon)
	return eris.Wrapf(err, "postgres: upsert zone %s", zone.Name)
}

// SetZoneGeom stores the EWKB-encoded boundary geometry for a zone.
func (s *PostgresStore) SetZoneGeom(ctx context.Context, name string, ewkb []byte) error {
	tag, err := s.pool.Exec(ctx, `UPDATE zones SET geom = $1 WHERE name = $2`, ewkb, name)
	if err != nil {
		return eris.Wrapf(err, "postgres: set zone geom %s", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: zone %s not found", name)
	}
	return nil
}

func (s *PostgresStore) GetZone(ctx context.Context, name string) (*model.Zone, error) {
	var z model.Zone
	var boundary []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, boundary, center_lat, center_lon FROM zones WHERE name = $1`, name).
		Scan(&z.Name, &boundary, &z.CenterLat, &z.CenterLon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get zone %s", name)
	}
	if err := json.Unmarshal(boundary, &z.Boundary); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal zone %s", name)
	}
	return &z, nil
}

func (s *PostgresStore) ListZones(ctx context.Context) ([]model.Zone, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, boundary, center_lat, center_lon FROM zones ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list zones")
	}
	defer rows.Close()

	var zones []model.Zone
	for rows.Next() {
		var z model.Zone
		var boundary []byte
		if err := rows.Scan(&z.Name, &boundary, &z.CenterLat, &z.CenterLon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan zone")
		}
		if err := json.Unmarshal(boundary, &z.Boundary); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal zone %s", z.Name)
		}
		zones = append(zones, z)
	}
	return zones, eris.Wrap(rows.Err(), "postgres: list zones iterate")
}

func (s *PostgresStore) CreateUser(ctx context.Context, user model.User) error {
	now := user.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4)`,
		user.Username, user.PasswordHash, user.IsAdmin, now)
	return eris.Wrapf(err, "postgres: create user %s", user.Username)
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, is_admin, created_at FROM users WHERE username = $1`,
		username).Scan(&u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get user %s", username)
	}
	return &u, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
