package stateplane

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

func newTestPlane(t *testing.T) *Plane {
	t.Helper()
	s := store.New(store.Config{LockTimeout: time.Second, KDF: auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16}})
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindRole, "r1", domain.ScopeDomain, "acme"))
	require.NoError(t, s.Create(domain.KindUser, "u1", domain.ScopeDomain, "acme"))
	return New(s)
}

func TestStateAndVolumeRoundTrip(t *testing.T) {
	p := newTestPlane(t)

	assert.Equal(t, domain.PermissionNone, p.GetState("u1", "r1", "loop1"))
	p.SetState("u1", "r1", "loop1", domain.PermissionSend)
	assert.Equal(t, domain.PermissionSend, p.GetState("u1", "r1", "loop1"))

	assert.Equal(t, 0, p.GetVolume("u1", "r1", "loop1"))
	require.NoError(t, p.SetVolume("u1", "r1", "loop1", 75))
	assert.Equal(t, 75, p.GetVolume("u1", "r1", "loop1"))
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	p := newTestPlane(t)
	assert.Error(t, p.SetVolume("u1", "r1", "loop1", -1))
	assert.Error(t, p.SetVolume("u1", "r1", "loop1", 101))
	assert.Equal(t, 0, p.GetVolume("u1", "r1", "loop1"))
}

func TestExportImportRoundTrip(t *testing.T) {
	p := newTestPlane(t)
	p.SetState("u1", "r1", "loop1", domain.PermissionSend)
	require.NoError(t, p.SetVolume("u1", "r1", "loop1", 40))
	p.SetState("u1", "r1", "loop2", domain.PermissionRecv)

	entries := p.Export()
	assert.Len(t, entries, 2)

	fresh := newTestPlane(t)
	fresh.Import(entries)

	assert.Equal(t, domain.PermissionSend, fresh.GetState("u1", "r1", "loop1"))
	assert.Equal(t, 40, fresh.GetVolume("u1", "r1", "loop1"))
	assert.Equal(t, domain.PermissionRecv, fresh.GetState("u1", "r1", "loop2"))
	assert.Equal(t, 0, fresh.GetVolume("u1", "r1", "loop2"))
}

func TestImportSkipsZeroValuedEntries(t *testing.T) {
	p := newTestPlane(t)
	p.Import([]StateEntry{{User: "u1", Role: "r1", Loop: "loop1", Permission: domain.PermissionNone, Volume: 0}})

	entries := p.Export()
	assert.Empty(t, entries)
}

func TestRoleAndKeysetLayoutRoundTrip(t *testing.T) {
	p := newTestPlane(t)

	layout, err := p.GetRoleLayout("r1")
	require.NoError(t, err)
	assert.Empty(t, layout)

	require.NoError(t, p.SetRoleLayout("r1", map[string]int{"loop1": 0}))
	layout, err = p.GetRoleLayout("r1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"loop1": 0}, layout)

	preset := map[string]any{"loop1": float64(0)}
	require.NoError(t, p.SetKeysetLayout("acme", "default", preset))
	got, err := p.GetKeysetLayout("acme", "default")
	require.NoError(t, err)
	assert.Equal(t, preset, got)
}

func TestUserDataRoundTrip(t *testing.T) {
	p := newTestPlane(t)
	data := map[string]any{"theme": "dark"}
	require.NoError(t, p.SetUserData("u1", data))

	got, err := p.GetUserData("u1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
