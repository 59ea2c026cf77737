package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionManager() *SessionManager {
	return NewSessionManager(SessionConfig{SecretKey: "test-secret", TTL: time.Hour, Issuer: "vocsdb-test"})
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	m := testSessionManager()

	token, err := m.Issue("alice", "client1", "acme")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "client1", claims.ClientID)
	assert.Equal(t, "acme", claims.DomainID)
}

func TestValidateRejectsTokenFromDifferentSecret(t *testing.T) {
	m := testSessionManager()
	token, err := m.Issue("alice", "client1", "acme")
	require.NoError(t, err)

	other := NewSessionManager(SessionConfig{SecretKey: "different-secret", TTL: time.Hour, Issuer: "vocsdb-test"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewSessionManager(SessionConfig{SecretKey: "test-secret", TTL: -time.Hour, Issuer: "vocsdb-test"})
	token, err := m.Issue("alice", "client1", "acme")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestRebindPreservesIdentity(t *testing.T) {
	m := testSessionManager()
	token, err := m.Issue("alice", "client1", "acme")
	require.NoError(t, err)
	claims, err := m.Validate(token)
	require.NoError(t, err)

	rebinded, err := m.Rebind(claims)
	require.NoError(t, err)

	newClaims, err := m.Validate(rebinded)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, newClaims.UserID)
	assert.Equal(t, claims.ClientID, newClaims.ClientID)
	assert.Equal(t, claims.DomainID, newClaims.DomainID)
}
