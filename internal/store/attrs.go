package store

import (
	"encoding/json"
	"fmt"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// attr extracts one top-level attribute by name from an already-fetched,
// already-stripped entity value.
func attr(entity any, key string) (any, error) {
	switch e := entity.(type) {
	case *domain.Domain:
		switch key {
		case "id":
			return e.ID, nil
		case "projects":
			return e.Projects, nil
		case "users":
			return e.Users, nil
		case "roles":
			return e.Roles, nil
		case "loops":
			return e.Loops, nil
		case "layouts":
			return e.Layouts, nil
		}
	case *domain.Project:
		switch key {
		case "id":
			return e.ID, nil
		case "users":
			return e.Users, nil
		case "roles":
			return e.Roles, nil
		case "loops":
			return e.Loops, nil
		}
	case *domain.User:
		switch key {
		case "id":
			return e.ID, nil
		case "ldap":
			return e.LDAP, nil
		case "data":
			return e.Data, nil
		case "password":
			return nil, nil
		}
	case *domain.Role:
		switch key {
		case "id":
			return e.ID, nil
		case "members":
			return e.Members, nil
		case "layout":
			return e.Layout, nil
		}
	case *domain.Loop:
		switch key {
		case "id":
			return e.ID, nil
		case "role_permissions":
			return e.RolePermissions, nil
		case "sip":
			return e.SIP, nil
		case "multicast":
			return e.Multicast, nil
		case "recording":
			return e.Recording, nil
		case "roll_after_secs":
			return e.RollAfterSecs, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown attribute %q", domain.ErrInvalidInput, key)
}

// decodeInto round-trips an arbitrary decoded-JSON value (map[string]any,
// []any, string, float64, bool, ...) into a concrete Go type via JSON, the
// practical way to accept "any" at the attribute boundary while keeping the
// entities themselves typed structs rather than free-form bags.
func decodeInto(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
