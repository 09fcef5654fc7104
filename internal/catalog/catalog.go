package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// Catalog is the station directory the scheduling core selects stations
// from. Stations are read-only reference data to everything above this
// boundary.
type Catalog interface {
	ListStations(ctx context.Context, filter store.StationFilter) ([]*models.Station, error)
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
}

// StoreCatalog serves the catalog from the stations table.
type StoreCatalog struct {
	store store.Store
}

func NewStoreCatalog(s store.Store) *StoreCatalog {
	return &StoreCatalog{store: s}
}

func (c *StoreCatalog) ListStations(ctx context.Context, filter store.StationFilter) ([]*models.Station, error) {
	return c.store.ListStations(ctx, filter)
}

func (c *StoreCatalog) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	return c.store.GetStation(ctx, id)
}
