package catalog

import (
	"context"
	"time"

	"github.com/optiondesk/marketdata/internal/model"
)

// Snapshot is the persisted form of the catalog.
type Snapshot struct {
	Instruments []model.Instrument `json:"instruments"`
	SavedAt     time.Time          `json:"saved_at"`
}

// Age returns how long ago the snapshot was persisted.
func (s Snapshot) Age() time.Duration {
	return time.Since(s.SavedAt)
}

// Cache persists catalog snapshots across restarts. Implementations live
// in internal/cache (Redis, local file).
type Cache interface {
	// Get returns the stored snapshot. The second return is false when
	// nothing is stored.
	Get(ctx context.Context) (Snapshot, bool, error)

	// Put stores the snapshot, replacing any previous one.
	Put(ctx context.Context, snap Snapshot) error
}
