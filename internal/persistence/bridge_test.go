package persistence

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

type fakeBackend struct {
	saved *Snapshot
	load  *Snapshot
}

func (f *fakeBackend) Save(_ context.Context, snap *Snapshot) error {
	f.saved = snap
	return nil
}

func (f *fakeBackend) Load(_ context.Context) (*Snapshot, error) {
	if f.load == nil {
		return &Snapshot{}, nil
	}
	return f.load, nil
}

func newTestStoreAndPlane(t *testing.T) (*store.Store, *stateplane.Plane) {
	t.Helper()
	s := store.New(store.Config{LockTimeout: time.Second, KDF: auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16}})
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	return s, stateplane.New(s)
}

func TestBridgeSaveCopiesTreeAndState(t *testing.T) {
	s, plane := newTestStoreAndPlane(t)
	plane.SetState("u1", "r1", "loop1", domain.PermissionSend)
	backend := &fakeBackend{}

	b := NewBridge(s, plane, backend, ClusterConfig{}, slog.Default())
	require.NoError(t, b.Save(context.Background()))

	require.NotNil(t, backend.saved)
	assert.Contains(t, backend.saved.AuthTree, "acme")
	assert.Len(t, backend.saved.State, 1)
}

func TestBridgeLoadInjectsSnapshotIntoStoreAndPlane(t *testing.T) {
	s, plane := newTestStoreAndPlane(t)
	backend := &fakeBackend{load: &Snapshot{
		AuthTree: map[string]*domain.Domain{"other": domain.NewDomain("other")},
		State:    []stateplane.StateEntry{{User: "u2", Role: "r2", Loop: "loop2", Permission: domain.PermissionRecv}},
	}}

	b := NewBridge(s, plane, backend, ClusterConfig{}, slog.Default())
	require.NoError(t, b.Load(context.Background()))

	tree, err := s.Export()
	require.NoError(t, err)
	assert.Contains(t, tree, "other")
	assert.NotContains(t, tree, "acme")
	assert.Equal(t, domain.PermissionRecv, plane.GetState("u2", "r2", "loop2"))
}
