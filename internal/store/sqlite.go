package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/crimengo/crimengo/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS incidents (
	id                   TEXT PRIMARY KEY,
	case_number          TEXT,
	date                 DATETIME,
	block                TEXT,
	iucr                 TEXT,
	primary_type         TEXT,
	description          TEXT,
	location_description TEXT,
	arrest               INTEGER NOT NULL DEFAULT 0,
	domestic             INTEGER NOT NULL DEFAULT 0,
	beat                 TEXT,
	district             TEXT,
	ward                 TEXT,
	community_area       TEXT,
	fbi_code             TEXT,
	year                 INTEGER,
	updated_on           DATETIME,
	latitude             REAL,
	longitude            REAL,
	location             TEXT,
	source               TEXT
);

CREATE TABLE IF NOT EXISTS zones (
	name       TEXT PRIMARY KEY,
	boundary   TEXT NOT NULL,
	center_lat REAL NOT NULL,
	center_lon REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_incidents_date ON incidents(date);
CREATE INDEX IF NOT EXISTS idx_incidents_primary_type ON incidents(primary_type);
CREATE INDEX IF NOT EXISTS idx_incidents_source ON incidents(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const incidentColumns = `id, case_number, date, block, iucr, primary_type, description,
	location_description, arrest, domestic, beat, district, ward, community_area,
	fbi_code, year, updated_on, latitude, longitude, location, source`

func (s *SQLiteStore) UpsertIncidents(ctx context.Context, incidents []model.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO incidents (`+incidentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, in := range incidents {
		if _, err := stmt.ExecContext(ctx,
			in.ID, in.CaseNumber, in.Date.UTC(), in.Block, in.IUCR, in.PrimaryType,
			in.Description, in.LocationDescription, in.Arrest, in.Domestic, in.Beat,
			in.District, in.Ward, in.CommunityArea, in.FBICode, in.Year,
			in.UpdatedOn.UTC(), in.Latitude, in.Longitude, in.Location, string(in.Source),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert incident %s", in.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(incidents), nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	var args []any

	if filter.PrimaryType != "" {
		query += ` AND primary_type = ?`
		args = append(args, filter.PrimaryType)
	}
	if filter.ArrestOnly {
		query += ` AND arrest = 1`
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.Since != nil {
		query += ` AND date >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list incidents")
	}
	defer rows.Close() //nolint:errcheck

	var incidents []model.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		incidents = append(incidents, *in)
	}
	return incidents, eris.Wrap(rows.Err(), "sqlite: list incidents iterate")
}

func (s *SQLiteStore) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id)
	in, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get incident %s", id)
	}
	return in, nil
}

func (s *SQLiteStore) DeleteIncident(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete incident %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountIncidents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count incidents")
}

func (s *SQLiteStore) Summary(ctx context.Context) (*model.Summary, error) {
	var sum model.Summary
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(arrest), 0),
			COALESCE(SUM(domestic), 0),
			MAX(date)
		FROM incidents`).Scan(&sum.Total, &sum.Arrests, &sum.Domestic, &latest)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summary")
	}
	if latest.Valid {
		t := latest.Time.UTC()
		sum.LatestDate = &t
	}
	return &sum, nil
}

func (s *SQLiteStore) TopCategories(ctx context.Context, limit int) ([]model.CategoryCount, error) {
	return s.topCounts(ctx, "primary_type", limit)
}

func (s *SQLiteStore) TopLocations(ctx context.Context, limit int) ([]model.CategoryCount, error) {
	return s.topCounts(ctx, "location_description", limit)
}

func (s *SQLiteStore) topCounts(ctx context.Context, column string, limit int) ([]model.CategoryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	// column is one of two fixed identifiers, never user input.
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(`+column+`, ''), 'UNKNOWN') AS label, COUNT(*) AS n
		FROM incidents
		GROUP BY label
		ORDER BY n DESC, label ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: top %s", column)
	}
	defer rows.Close() //nolint:errcheck

	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan top %s", column)
		}
		counts = append(counts, c)
	}
	return counts, eris.Wrapf(rows.Err(), "sqlite: top %s iterate", column)
}

func (s *SQLiteStore) UpsertZone(ctx context.Context, zone model.Zone) error {
	boundary, err := json.Marshal(zone.Boundary)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal zone %s", zone.Name)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO zones (name, boundary, center_lat, center_lon)
		VALUES (?, ?, ?, ?)`,
		zone.Name, string(boundary), zone.CenterLat, zone.CenterLon)
	return eris.Wrapf(err, "sqlite: upsert zone %s", zone.Name)
}

func (s *SQLiteStore) GetZone(ctx context.Context, name string) (*model.Zone, error) {
	var z model.Zone
	var boundary string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, boundary, center_lat, center_lon FROM zones WHERE name = ?`, name).
		Scan(&z.Name, &boundary, &z.CenterLat, &z.CenterLon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get zone %s", name)
	}
	if err := json.Unmarshal([]byte(boundary), &z.Boundary); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal zone %s", name)
	}
	return &z, nil
}

func (s *SQLiteStore) ListZones(ctx context.Context) ([]model.Zone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, boundary, center_lat, center_lon FROM zones ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list zones")
	}
	defer rows.Close() //nolint:errcheck

	var zones []model.Zone
	for rows.Next() {
		var z model.Zone
		var boundary string
		if err := rows.Scan(&z.Name, &boundary, &z.CenterLat, &z.CenterLon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan zone")
		}
		if err := json.Unmarshal([]byte(boundary), &z.Boundary); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal zone %s", z.Name)
		}
		zones = append(zones, z)
	}
	return zones, eris.Wrap(rows.Err(), "sqlite: list zones iterate")
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) error {
	now := user.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.IsAdmin, now)
	return eris.Wrapf(err, "sqlite: create user %s", user.Username)
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, is_admin, created_at FROM users WHERE username = ?`,
		username).Scan(&u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", username)
	}
	return &u, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (*model.Incident, error) {
	var in model.Incident
	var caseNumber, block, iucr, primaryType, description, locDesc sql.NullString
	var beat, district, ward, communityArea, fbiCode, location, source sql.NullString
	var date, updatedOn sql.NullTime
	var year sql.NullInt64
	var lat, lon sql.NullFloat64

	err := row.Scan(&in.ID, &caseNumber, &date, &block, &iucr, &primaryType,
		&description, &locDesc, &in.Arrest, &in.Domestic, &beat, &district,
		&ward, &communityArea, &fbiCode, &year, &updatedOn, &lat, &lon,
		&location, &source)
	if err != nil {
		return nil, err
	}

	in.CaseNumber = caseNumber.String
	in.Block = block.String
	in.IUCR = iucr.String
	in.PrimaryType = primaryType.String
	in.Description = description.String
	in.LocationDescription = locDesc.String
	in.Beat = beat.String
	in.District = district.String
	in.Ward = ward.String
	in.CommunityArea = communityArea.String
	in.FBICode = fbiCode.String
	in.Location = location.String
	in.Source = model.Source(source.String)
	in.Year = int(year.Int64)
	if date.Valid {
		in.Date = date.Time.UTC()
	}
	if updatedOn.Valid {
		in.UpdatedOn = updatedOn.Time.UTC()
	}
	if lat.Valid && lon.Valid {
		in.Latitude = &lat.Float64
		in.Longitude = &lon.Float64
	}
	return &in, nil
}
