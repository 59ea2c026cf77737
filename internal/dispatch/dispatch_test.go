package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/authz"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/event"
	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s := store.New(store.Config{
		LockTimeout: time.Second,
		KDF:         auth.KDFParams{Workfactor: 1, Blocksize: 1, Parallel: 1, Length: 16},
	})
	require.NoError(t, s.Create(domain.KindDomain, "acme", domain.ScopeDomain, ""))
	require.NoError(t, s.Create(domain.KindUser, "alice", domain.ScopeDomain, "acme"))
	require.NoError(t, s.SetPassword("alice", "hunter2"))

	plane := stateplane.New(s)
	az := authz.NewEngine(s)
	sessions := NewSessionStore(auth.NewSessionManager(auth.SessionConfig{
		SecretKey: "test-secret",
		TTL:       time.Hour,
		Issuer:    "test",
	}))

	return New(Config{}, s, plane, az, sessions, event.NewNoopPublisher(), nil, nil, nil, nil)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleLoginWithCorrectPasswordIssuesSession(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Handle(context.Background(), "conn1", Request{
		Event: "login", UUID: "u1",
		Parameter: mustJSON(t, map[string]string{"user": "alice", "password": "hunter2", "domain": "acme"}),
	})

	require.Nil(t, resp.Error)
	result, ok := resp.Response.(loginResult)
	require.True(t, ok)
	assert.NotEmpty(t, result.Session)

	conn, ok := d.conns.get("conn1")
	require.True(t, ok)
	assert.Equal(t, "alice", conn.UserID)
}

func TestHandleLoginWithWrongPasswordFails(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Handle(context.Background(), "conn1", Request{
		Event: "login", UUID: "u1",
		Parameter: mustJSON(t, map[string]string{"user": "alice", "password": "wrong", "domain": "acme"}),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeAuth, resp.Error.Code)
	_, ok := d.conns.get("conn1")
	assert.False(t, ok)
}

func TestHandleUnrecognizedEventIsParameterError(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Handle(context.Background(), "conn1", Request{Event: "not_a_real_op", UUID: "u1"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParameter, resp.Error.Code)
}

func TestHandleGetRequiresNoAuthAndReturnsEntity(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Handle(context.Background(), "conn1", Request{
		Event: "get", UUID: "u1",
		Parameter: mustJSON(t, map[string]string{"type": "user", "id": "alice"}),
	})

	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Response)
}

func TestHandleDeleteRequiresAdminOfScope(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Handle(context.Background(), "conn1", Request{
		Event: "delete", UUID: "u1",
		Parameter: mustJSON(t, map[string]string{"type": "user", "id": "alice"}),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeAuth, resp.Error.Code)
}

func TestDisconnectTearsDownConnection(t *testing.T) {
	d := newTestDispatcher(t)
	d.conns.set("conn1", &Connection{UserID: "alice"})

	d.Disconnect("conn1")

	_, ok := d.conns.get("conn1")
	assert.False(t, ok)
}

func TestHandleLogoutClearsConnection(t *testing.T) {
	d := newTestDispatcher(t)
	d.conns.set("conn1", &Connection{UserID: "alice"})

	resp := d.Handle(context.Background(), "conn1", Request{Event: "logout", UUID: "u1"})

	require.Nil(t, resp.Error)
	_, ok := d.conns.get("conn1")
	assert.False(t, ok)
}
