package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

func newTestStore() *Store {
	return New(Config{
		LockTimeout: time.Second,
		KDF:         auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16},
	})
}

func TestCreateGetDeleteDomain(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	assert.True(t, s.CheckIDExists("acme", nil))

	v, err := s.Get(domain.KindDomain, "acme")
	require.NoError(t, err)
	d, ok := v.(*domain.Domain)
	require.True(t, ok)
	assert.Equal(t, "acme", d.ID)

	_, err = s.Delete(domain.KindDomain, "acme")
	require.NoError(t, err)
	assert.False(t, s.CheckIDExists("acme", nil))
}

func TestCreateDuplicateIDFails(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))

	err := s.Create(domain.KindDomain, "acme", domain.ScopeDomain, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateUserUnderMissingDomainFails(t *testing.T) {
	s := newTestStore()
	err := s.Create(domain.KindUser, "alice", domain.ScopeDomain, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetPasswordAndAuthenticate(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindUser, "alice", domain.ScopeDomain, "acme"))

	require.NoError(t, s.SetPassword("alice", "hunter2"))

	assert.True(t, s.Authenticate("alice", "hunter2"))
	assert.False(t, s.Authenticate("alice", "wrong"))
}

func TestGetDomainOfResolvesScope(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindUser, "alice", domain.ScopeDomain, "acme"))

	scope, err := s.GetDomainOf(domain.KindUser, "alice")
	require.NoError(t, err)
	assert.Equal(t, "acme", scope.DomainID)
	assert.Empty(t, scope.ProjectID)
}

func TestUpdateKeyRejectsReadOnlyID(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))

	_, err := s.UpdateKey(domain.KindDomain, "acme", "id", "other")
	assert.ErrorIs(t, err, domain.ErrReadOnlyAttribute)
}

func TestExportLoadRoundTrip(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindUser, "alice", domain.ScopeDomain, "acme"))

	tree, err := s.Export()
	require.NoError(t, err)

	fresh := newTestStore()
	require.NoError(t, fresh.Load(tree))

	assert.True(t, fresh.CheckIDExists("alice", nil))
}
