package ldapimport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cenkalti/backoff/v4"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/dispatch"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/event"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

type fakeConn struct {
	bindErr    error
	searchResp *goldap.SearchResult
	searchErr  error
	closed     bool
}

func (c *fakeConn) Bind(username, password string) error { return c.bindErr }

func (c *fakeConn) Search(req *goldap.SearchRequest) (*goldap.SearchResult, error) {
	return c.searchResp, c.searchErr
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func entryWithUID(uid, cn string) *goldap.Entry {
	return goldap.NewEntry(uid, map[string][]string{
		"uid": {uid},
		"cn":  {cn},
	})
}

func newTestWorker(t *testing.T, conn *fakeConn) (*Worker, *store.Store) {
	t.Helper()
	s := store.New(store.Config{LockTimeout: time.Second, KDF: auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16}})
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))

	w := New(s, event.NewNoopPublisher(), "ldap://bind-host", nil)
	w.dial = func(ctx context.Context, host string) (Conn, error) { return conn, nil }
	w.retry = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)
	return w, s
}

func TestImportAddsLDAPOnlyUsers(t *testing.T) {
	conn := &fakeConn{searchResp: &goldap.SearchResult{Entries: []*goldap.Entry{entryWithUID("alice", "Alice A")}}}
	w, s := newTestWorker(t, conn)

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "secret",
	})
	require.NoError(t, err)

	users, err := s.DomainUsers("acme")
	require.NoError(t, err)
	require.Contains(t, users, "alice")
	assert.True(t, users["alice"].LDAP)
	assert.True(t, conn.closed)
}

func TestImportDiffCarriesOnlyIDsNoPasswordEgress(t *testing.T) {
	conn := &fakeConn{searchResp: &goldap.SearchResult{Entries: []*goldap.Entry{entryWithUID("u2", "U Two"), entryWithUID("u3", "U Three"), entryWithUID("u4", "U Four")}}}
	w, s := newTestWorker(t, conn)
	pub := &capturingPublisher{}
	w.publisher = pub

	require.NoError(t, s.Create(domain.KindUser, "u1", domain.ScopeDomain, "acme"))
	require.NoError(t, s.Create(domain.KindUser, "u2", domain.ScopeDomain, "acme"))
	require.NoError(t, s.Create(domain.KindUser, "u3", domain.ScopeDomain, "acme"))
	require.NoError(t, s.SetPassword("u1", "p@ss"))

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "secret",
	})
	require.NoError(t, err)

	require.NotNil(t, pub.event)
	assert.Equal(t, domain.NewIDSet("u4"), pub.event.Add)
	assert.Equal(t, domain.NewIDSet("u1"), pub.event.Delete)

	raw, err := json.Marshal(pub.event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ldap_update","domain":"acme","add":{"u4":null},"delete":{"u1":null}}`, string(raw))
}

type capturingPublisher struct {
	event *domain.LDAPUpdateEvent
}

func (p *capturingPublisher) PublishChange(ctx context.Context, e domain.ChangeEvent) error {
	return nil
}

func (p *capturingPublisher) PublishLDAPUpdate(ctx context.Context, e domain.LDAPUpdateEvent) error {
	p.event = &e
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestImportRemovesUsersAbsentFromLDAP(t *testing.T) {
	conn := &fakeConn{searchResp: &goldap.SearchResult{}}
	w, s := newTestWorker(t, conn)
	require.NoError(t, s.Create(domain.KindUser, "stale", domain.ScopeDomain, "acme"))

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "secret",
	})
	require.NoError(t, err)

	users, err := s.DomainUsers("acme")
	require.NoError(t, err)
	assert.NotContains(t, users, "stale")
}

func TestImportKeepsUsersPresentInBoth(t *testing.T) {
	conn := &fakeConn{searchResp: &goldap.SearchResult{Entries: []*goldap.Entry{entryWithUID("bob", "Bob B")}}}
	w, s := newTestWorker(t, conn)
	require.NoError(t, s.Create(domain.KindUser, "bob", domain.ScopeDomain, "acme"))

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "secret",
	})
	require.NoError(t, err)

	users, err := s.DomainUsers("acme")
	require.NoError(t, err)
	require.Contains(t, users, "bob")
	assert.False(t, users["bob"].LDAP)
}

func TestImportSkipsEntriesMissingUID(t *testing.T) {
	conn := &fakeConn{searchResp: &goldap.SearchResult{Entries: []*goldap.Entry{
		goldap.NewEntry("no-uid", map[string][]string{"cn": {"No UID"}}),
	}}}
	w, s := newTestWorker(t, conn)

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "secret",
	})
	require.NoError(t, err)

	users, err := s.DomainUsers("acme")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestImportBindFailureIsPermanent(t *testing.T) {
	conn := &fakeConn{bindErr: errors.New("invalid credentials")}
	w, _ := newTestWorker(t, conn)

	err := w.Import(context.Background(), dispatch.ImportRequest{
		Host: "ldap://dir", Base: "dc=acme", DomainID: "acme",
		BindUser: "cn=admin", BindPassword: "wrong",
	})
	require.Error(t, err)
}

func TestBindAsUserDialsBindHost(t *testing.T) {
	conn := &fakeConn{}
	w, _ := newTestWorker(t, conn)
	var dialedHost string
	w.dial = func(ctx context.Context, host string) (Conn, error) {
		dialedHost = host
		return conn, nil
	}

	require.NoError(t, w.BindAsUser(context.Background(), "alice", "password"))
	assert.Equal(t, "ldap://bind-host", dialedHost)
}
