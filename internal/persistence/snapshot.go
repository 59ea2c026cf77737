// Package persistence implements the Persistence Bridge: the load/save
// pair that serializes the auth tree and the state plane to a configured
// backend, on a timer or on demand, with an optional cluster broadcast
// after each save. The broadcast carries the whole saved snapshot; no diff
// against the previous save is computed.
package persistence

import (
	"context"
	"time"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
)

// Snapshot is the opaque-to-the-core unit a Backend persists: the whole
// auth tree (indices are rebuilt from it on load, never stored) plus the
// state plane's runtime maps.
type Snapshot struct {
	SavedAt  time.Time                   `json:"saved_at"`
	AuthTree map[string]*domain.Domain   `json:"auth_tree"`
	State    []stateplane.StateEntry     `json:"state"`
}

// Backend is the storage-specific half of the bridge: where bytes go.
type Backend interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}
