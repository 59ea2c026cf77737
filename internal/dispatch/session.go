package dispatch

import "github.com/ov-vocsdb/vocsdb/internal/auth"

// SessionStore wraps the stateless session-id signer. It carries no table
// of its own: a session-id is a signed token tying userID/clientID/domainID
// together, so validating it needs no lookup against persistent state.
type SessionStore struct {
	manager *auth.SessionManager
}

// NewSessionStore wraps manager for use by a Dispatcher.
func NewSessionStore(manager *auth.SessionManager) *SessionStore {
	return &SessionStore{manager: manager}
}

func (s *SessionStore) issue(userID, clientID, domainID string) (string, error) {
	return s.manager.Issue(userID, clientID, domainID)
}

func (s *SessionStore) validate(sessionID string) (*auth.SessionClaims, error) {
	return s.manager.Validate(sessionID)
}

func (s *SessionStore) rebind(claims *auth.SessionClaims) (string, error) {
	return s.manager.Rebind(claims)
}
