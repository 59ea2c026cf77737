package persistence

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

func writeSnapshot(w io.Writer, snap *Snapshot) error {
	return json.NewEncoder(w).Encode(snap)
}

// ClusterConfig configures the optional best-effort broadcast of post-save
// snapshot bytes to subordinate replicas.
type ClusterConfig struct {
	Enabled bool
	Socket  string
}

// Bridge implements dispatch.PersistenceBridge: load/save, each taking the
// store's lock (via Export/Load) to copy state out or inject it, plus
// timer-driven periodic saves.
type Bridge struct {
	store   *store.Store
	plane   *stateplane.Plane
	backend Backend
	cluster ClusterConfig
	logger  *slog.Logger
}

func NewBridge(s *store.Store, plane *stateplane.Plane, backend Backend, cluster ClusterConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{store: s, plane: plane, backend: backend, cluster: cluster, logger: logger}
}

// Save copies the auth tree and state plane out from under their own locks
// and hands the resulting snapshot to the backend.
func (b *Bridge) Save(ctx context.Context) error {
	tree, err := b.store.Export()
	if err != nil {
		return err
	}
	snap := &Snapshot{
		SavedAt:  time.Now(),
		AuthTree: tree,
		State:    b.plane.Export(),
	}
	if err := b.backend.Save(ctx, snap); err != nil {
		return err
	}
	b.broadcast(snap)
	return nil
}

// Load reads the backend's snapshot and injects it through the Entity
// Store (which rebuilds all five indices) and the state plane.
func (b *Bridge) Load(ctx context.Context) error {
	snap, err := b.backend.Load(ctx)
	if err != nil {
		return err
	}
	if err := b.store.Load(snap.AuthTree); err != nil {
		return err
	}
	b.plane.Import(snap.State)
	return nil
}

// broadcast is best-effort: a subordinate replica that is unreachable or
// slow never blocks or fails the save that triggered it.
func (b *Bridge) broadcast(snap *Snapshot) {
	if !b.cluster.Enabled || b.cluster.Socket == "" {
		return
	}
	conn, err := net.DialTimeout("unix", b.cluster.Socket, 2*time.Second)
	if err != nil {
		b.logger.Warn("cluster broadcast dial failed", slog.String("socket", b.cluster.Socket), slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := writeSnapshot(conn, snap); err != nil {
		b.logger.Warn("cluster broadcast write failed", slog.String("error", err.Error()))
	}
}

// StartTimers spawns the two independent periodic save timers; either may
// be disabled by passing 0.
func (b *Bridge) StartTimers(ctx context.Context, authInterval, stateInterval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = b.logger
	}
	if authInterval > 0 {
		go b.runTimer(ctx, authInterval, "auth snapshot", logger)
	}
	if stateInterval > 0 {
		go b.runTimer(ctx, stateInterval, "state snapshot", logger)
	}
}

func (b *Bridge) runTimer(ctx context.Context, interval time.Duration, label string, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Save(ctx); err != nil {
				logger.Error("periodic "+label+" failed", slog.String("error", err.Error()))
			}
		}
	}
}

