package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s := store.New(store.Config{
		LockTimeout: time.Second,
		KDF:         auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16},
	})
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindProject, "proj1", domain.ScopeDomain, "acme"))
	return NewEngine(s), s
}

func TestGrantDomainAdminMakesUserAdminDomains(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.GrantDomainAdmin("acme", "alice"))

	ok, err := e.IsDomainAdminByID("acme", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	domains, err := e.AdminDomains("alice")
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "acme", domains[0].ID)
}

func TestDomainAdminInheritsProjectAdmin(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.GrantDomainAdmin("acme", "alice"))

	ok, err := e.IsProjectAdminByID("proj1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProjectAdminDoesNotImplyDomainAdmin(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.GrantProjectAdmin("proj1", "bob"))

	ok, err := e.IsDomainAdminByID("acme", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.IsProjectAdminByID("proj1", "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAdminOfScopeDispatchesByScopeKind(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.GrantProjectAdmin("proj1", "bob"))

	ok, err := e.IsAdminOfScope(domain.Scope{DomainID: "acme", ProjectID: "proj1"}, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsAdminOfScope(domain.Scope{DomainID: "acme"}, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSIPAllowCalloutDefaultsToTrueWithoutSIPConfig(t *testing.T) {
	loop := domain.NewLoop("loop1")
	assert.True(t, SIPAllowCallout(loop, "r1"))
	assert.True(t, SIPAllowCallend(loop, "r1"))
}

func TestSIPAllowCalloutHonorsPerRolePermissions(t *testing.T) {
	loop := domain.NewLoop("loop1")
	loop.SIP = &domain.SIPConfig{RoleCalloutPermissions: map[string]bool{"r1": true, "r2": false}}

	assert.True(t, SIPAllowCallout(loop, "r1"))
	assert.False(t, SIPAllowCallout(loop, "r2"))
	assert.False(t, SIPAllowCallout(loop, "unlisted"))

	assert.True(t, SIPAllowCallend(loop, "r2"))
	assert.False(t, SIPAllowCallend(loop, "unlisted"))
}

func TestRoleHasPermissionOnLoopDefaultsToNone(t *testing.T) {
	role := domain.NewRole("r1")
	loop := domain.NewLoop("loop1")

	assert.Equal(t, domain.PermissionNone, RoleHasPermissionOnLoop(role, loop))

	loop.RolePermissions = map[string]domain.Permission{"r1": domain.PermissionSend}
	assert.Equal(t, domain.PermissionSend, RoleHasPermissionOnLoop(role, loop))
}
