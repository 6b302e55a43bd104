// Package store persists incident records, zones, and operator accounts in
// SQLite or Postgres behind a common interface.
package store

import (
	"context"

	"github.com/crimengo/crimengo/internal/model"
)

// Store defines the persistence interface for the dashboard.
//
// Incident writes are upsert-by-id: re-storing an existing id replaces the
// row wholesale, never edits it in place. Lookups that find nothing return
// (nil, nil) rather than an error.
type Store interface {
	// Incidents
	UpsertIncidents(ctx context.Context, incidents []model.Incident) (int, error)
	ListIncidents(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error)
	GetIncident(ctx context.Context, id string) (*model.Incident, error)
	DeleteIncident(ctx context.Context, id string) (bool, error)
	CountIncidents(ctx context.Context) (int, error)

	// Dashboard aggregates
	Summary(ctx context.Context) (*model.Summary, error)
	TopCategories(ctx context.Context, limit int) ([]model.CategoryCount, error)
	TopLocations(ctx context.Context, limit int) ([]model.CategoryCount, error)

	// Zones
	UpsertZone(ctx context.Context, zone model.Zone) error
	GetZone(ctx context.Context, name string) (*model.Zone, error)
	ListZones(ctx context.Context) ([]model.Zone, error)

	// Users
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DefaultListLimit caps ListIncidents when the filter leaves Limit unset.
const DefaultListLimit = 5000
