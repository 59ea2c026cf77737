package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

// SessionClaims identifies the connection a session-id was issued for: the
// user that logged in and the client that is allowed to reuse it via
// update_login.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	ClientID string `json:"cid"`
	DomainID string `json:"dom"`
}

// SessionConfig configures session-id signing. Sessions have no persistent
// identity in the entity store (§3); the Request Dispatcher is their sole
// owner, and a signed, stateless token lets any dispatcher instance in a
// cluster validate a session without a shared session table.
type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:    12 * time.Hour,
		Issuer: "vocsdb",
	}
}

type SessionManager struct {
	config SessionConfig
}

func NewSessionManager(config SessionConfig) *SessionManager {
	return &SessionManager{config: config}
}

// Issue creates a new session-id for (userID, clientID) in domainID.
func (m *SessionManager) Issue(userID, clientID, domainID string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
		UserID:   userID,
		ClientID: clientID,
		DomainID: domainID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate parses and verifies a session-id, returning the identity it was
// issued for.
func (m *SessionManager) Validate(sessionID string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(sessionID, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Rebind reissues a session-id for the same identity, used by update_login
// to rebind an existing session to the same client without requiring
// credentials again.
func (m *SessionManager) Rebind(claims *SessionClaims) (string, error) {
	return m.Issue(claims.UserID, claims.ClientID, claims.DomainID)
}
