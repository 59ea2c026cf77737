// Package domain contains the core entities and invariants of the auth and
// state store: domains, projects, users, roles, loops, and the permission
// lattice that governs access between them. These types have no knowledge of
// transport, persistence, or LDAP.
package domain

import (
	"errors"
	"fmt"
)

// Errors for common domain-level failures. The dispatcher maps these onto
// the wire error taxonomy (parameter / auth / processing / timeout).
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrReadOnlyAttribute = errors.New("attribute is read-only")
	ErrTimeout           = errors.New("operation timed out")
	ErrLockTimeout       = errors.New("lock acquisition timed out")
	ErrLDAPRejected      = errors.New("ldap rejected the login")
	ErrLDAPManaged       = errors.New("password is managed by ldap")
)

// ValidationError represents a single per-attribute validation failure.
// verify_item and update_item return a ValidationErrors slice instead of
// mutating when any check fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of per-attribute validation failures,
// returned verbatim to the caller as the response's error map.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors", len(e))
}

// Map renders the errors as field -> message, the shape the dispatcher
// attaches to a processing-error response envelope.
func (e ValidationErrors) Map() map[string]string {
	if len(e) == 0 {
		return nil
	}
	m := make(map[string]string, len(e))
	for _, v := range e {
		m[v.Field] = v.Message
	}
	return m
}
