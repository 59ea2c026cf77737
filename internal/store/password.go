package store

import (
	"fmt"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// SetPassword hashes cleartext under the configured KDF parameters and
// stores it on the user. The KDF runs while the lock is held, an accepted
// cost given this is an administrative, not hot, path.
func (s *Store) SetPassword(userID, cleartext string) error {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return domain.ErrLockTimeout
	}
	defer s.lock.Release()

	scope, ok := s.idx.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, userID)
	}
	_, cont, err := s.containerUsers(scope)
	if err != nil {
		return err
	}
	u := cont[userID]

	hash, err := auth.HashPassword(cleartext, s.cfg.KDF)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.LDAP = false
	return nil
}

// Authenticate reports whether cleartext matches the user's stored hash.
// Unknown users and users with no password both return false; the
// comparison itself runs in constant time with respect to the hash bytes.
func (s *Store) Authenticate(userID, cleartext string) bool {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return false
	}
	defer s.lock.Release()

	scope, ok := s.idx.users[userID]
	if !ok {
		return false
	}
	_, cont, err := s.containerUsers(scope)
	if err != nil {
		return false
	}
	u := cont[userID]
	if u.PasswordHash == "" {
		return false
	}
	return auth.CheckPassword(cleartext, u.PasswordHash) == nil
}
