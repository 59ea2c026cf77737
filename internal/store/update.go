package store

import (
	"fmt"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/sipdiff"
)

var compositeChildKeys = map[string]bool{
	"users": true, "roles": true, "loops": true, "projects": true,
}

// VerifyItem performs the I1/I3/I4/I5 checks a candidate patch must pass
// before update_item is allowed to mutate, without mutating anything.
func (s *Store) VerifyItem(kind domain.Kind, id string, candidate map[string]any) (domain.ValidationErrors, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()
	return s.verifyLocked(kind, id, candidate)
}

func (s *Store) verifyLocked(kind domain.Kind, id string, candidate map[string]any) (domain.ValidationErrors, error) {
	var errs domain.ValidationErrors

	if rawID, ok := candidate["id"]; ok {
		if s, ok := rawID.(string); !ok || s != id {
			errs = append(errs, domain.ValidationError{Field: "id", Message: "id is read-only and cannot be changed"})
		}
	}

	switch kind {
	case domain.KindUser:
		if _, ok := candidate["password"]; ok {
			errs = append(errs, domain.ValidationError{Field: "password", Message: "use set_password to change a user's password"})
		}

	case domain.KindProject:
		scope, err := s.scopeOfLocked(kind, id)
		if err != nil {
			return nil, err
		}
		errs = append(errs, s.verifyChildrenSets(scope, candidate, false)...)

	case domain.KindDomain:
		scope, err := s.scopeOfLocked(kind, id)
		if err != nil {
			return nil, err
		}
		errs = append(errs, s.verifyChildrenSets(scope, candidate, true)...)
	}

	return errs, nil
}

// verifyChildrenSets checks the id-uniqueness rule for any of
// users/roles/loops (and, for a domain, projects) present in candidate.
func (s *Store) verifyChildrenSets(scope domain.Scope, candidate map[string]any, isDomain bool) domain.ValidationErrors {
	var errs domain.ValidationErrors

	if raw, ok := candidate["users"]; ok {
		var next map[string]*domain.User
		if err := decodeInto(raw, &next); err != nil {
			errs = append(errs, domain.ValidationError{Field: "users", Message: err.Error()})
		} else {
			errs = append(errs, checkIDsFree(next, s.idx.users, scope, nil)...)
		}
	}
	if raw, ok := candidate["roles"]; ok {
		var next map[string]*domain.Role
		if err := decodeInto(raw, &next); err != nil {
			errs = append(errs, domain.ValidationError{Field: "roles", Message: err.Error()})
		} else {
			errs = append(errs, checkIDsFree(next, s.idx.roles, scope, func(id string) bool { return id == domain.AdminRoleID })...)
		}
	}
	if raw, ok := candidate["loops"]; ok {
		var next map[string]*domain.Loop
		if err := decodeInto(raw, &next); err != nil {
			errs = append(errs, domain.ValidationError{Field: "loops", Message: err.Error()})
		} else {
			errs = append(errs, checkIDsFree(next, s.idx.loops, scope, nil)...)
		}
	}
	if isDomain {
		if raw, ok := candidate["projects"]; ok {
			var next map[string]*domain.Project
			if err := decodeInto(raw, &next); err != nil {
				errs = append(errs, domain.ValidationError{Field: "projects", Message: err.Error()})
			} else {
				for pid := range next {
					if owner, exists := s.idx.projects[pid]; exists && owner != scope.DomainID {
						errs = append(errs, domain.ValidationError{
							Field:   "projects",
							Message: fmt.Sprintf("id %q already in use by another scope", pid),
						})
					}
				}
			}
		}
	}
	return errs
}

// checkIDsFree validates that every id in next is either already owned by
// scope or free everywhere else, using the generic index type domain.Scope.
func checkIDsFree[T any](next map[string]*T, idx map[string]domain.Scope, scope domain.Scope, skip func(string) bool) domain.ValidationErrors {
	var errs domain.ValidationErrors
	for id := range next {
		if skip != nil && skip(id) {
			continue
		}
		if owner, exists := idx[id]; exists && owner != scope {
			errs = append(errs, domain.ValidationError{
				Field:   id,
				Message: fmt.Sprintf("id %q already in use by another scope", id),
			})
		}
	}
	return errs
}

// UpdateItem verifies the whole patch first; if verification fails nothing
// is mutated and the errors are returned as-is.
func (s *Store) UpdateItem(kind domain.Kind, id string, patch map[string]any) (*MutationResult, domain.ValidationErrors, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	errs, err := s.verifyLocked(kind, id, patch)
	if err != nil {
		return nil, nil, err
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	// Keys are applied one at a time, so a later key can fail after earlier
	// ones landed (verifyLocked does not reject every bad value). Keep a
	// copy of the tree so such a failure restores it rather than leaving a
	// half-applied patch.
	backup := make(map[string]*domain.Domain, len(s.root))
	for did, d := range s.root {
		backup[did] = d.Clone()
	}

	result := &MutationResult{}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		diff, err := s.applyKeyLocked(kind, id, key, value)
		if err != nil {
			s.root = backup
			s.idx = rebuild(s.root)
			return nil, nil, err
		}
		if diff != nil {
			if result.LoopDiffs == nil {
				result.LoopDiffs = map[string]domain.LoopDiff{}
			}
			for k, v := range diff {
				result.LoopDiffs[k] = v
			}
		}
	}
	return result, nil, nil
}

// UpdateKey replaces a single top-level attribute.
func (s *Store) UpdateKey(kind domain.Kind, id, key string, value any) (*MutationResult, error) {
	if key == "id" {
		return nil, domain.ErrReadOnlyAttribute
	}
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	if compositeChildKeys[key] {
		candidate := map[string]any{key: value}
		errs, err := s.verifyLocked(kind, id, candidate)
		if err != nil {
			return nil, err
		}
		if len(errs) > 0 {
			return nil, errs
		}
	} else if kind == domain.KindUser && key == "password" {
		return nil, fmt.Errorf("%w: use set_password to change a user's password", domain.ErrInvalidInput)
	}

	diff, err := s.applyKeyLocked(kind, id, key, value)
	if err != nil {
		return nil, err
	}
	result := &MutationResult{}
	if diff != nil {
		result.LoopDiffs = diff
	}
	return result, nil
}

// DeleteKey clears a top-level attribute back to its zero value.
func (s *Store) DeleteKey(kind domain.Kind, id, key string) error {
	if key == "id" {
		return domain.ErrReadOnlyAttribute
	}
	_, err := s.UpdateKey(kind, id, key, nil)
	return err
}

// applyKeyLocked dispatches a single key/value replacement to the right
// typed field, running the composite children-set logic (including the
// SIP-whitelist differ) when the key names one. Must be called with the
// lock held.
func (s *Store) applyKeyLocked(kind domain.Kind, id, key string, value any) (map[string]domain.LoopDiff, error) {
	switch kind {
	case domain.KindDomain:
		scope, err := s.scopeOfLocked(kind, id)
		if err != nil {
			return nil, err
		}
		d := s.root[id]
		switch key {
		case "users":
			var next map[string]*domain.User
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			s.replaceUsers(d.Users, next, scope)
			d.Users = next
			return nil, nil
		case "roles":
			var next map[string]*domain.Role
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			s.replaceRoles(d.Roles, next, scope)
			d.Roles = next
			return nil, nil
		case "loops":
			var next map[string]*domain.Loop
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			diff := sipdiff.Diff(d.Loops, next)
			s.replaceLoops(d.Loops, next, scope)
			d.Loops = next
			return diff, nil
		case "projects":
			var next map[string]*domain.Project
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			oldLoops := flattenProjectLoops(d.Projects)
			newLoops := flattenProjectLoops(next)
			diff := sipdiff.Diff(oldLoops, newLoops)
			s.replaceProjects(d.Projects, next, id)
			d.Projects = next
			return diff, nil
		case "layouts":
			var next map[string]map[string]any
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			d.Layouts = next
			return nil, nil
		}
		return nil, fmt.Errorf("%w: unknown domain attribute %q", domain.ErrInvalidInput, key)

	case domain.KindProject:
		scope, err := s.scopeOfLocked(kind, id)
		if err != nil {
			return nil, err
		}
		_, p, err := s.resolveScope(scope)
		if err != nil {
			return nil, err
		}
		switch key {
		case "users":
			var next map[string]*domain.User
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			s.replaceUsers(p.Users, next, scope)
			p.Users = next
			return nil, nil
		case "roles":
			var next map[string]*domain.Role
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			s.replaceRoles(p.Roles, next, scope)
			p.Roles = next
			return nil, nil
		case "loops":
			var next map[string]*domain.Loop
			if err := decodeInto(value, &next); err != nil {
				return nil, err
			}
			diff := sipdiff.Diff(p.Loops, next)
			s.replaceLoops(p.Loops, next, scope)
			p.Loops = next
			return diff, nil
		}
		return nil, fmt.Errorf("%w: unknown project attribute %q", domain.ErrInvalidInput, key)

	case domain.KindUser:
		scope, ok := s.idx.users[id]
		if !ok {
			return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerUsers(scope)
		if err != nil {
			return nil, err
		}
		u := cont[id]
		switch key {
		case "ldap":
			var v bool
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			u.LDAP = v
		case "data":
			var v map[string]any
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			u.Data = v
		default:
			return nil, fmt.Errorf("%w: unknown user attribute %q", domain.ErrInvalidInput, key)
		}
		return nil, nil

	case domain.KindRole:
		scope, ok := s.idx.roles[id]
		if !ok {
			if id == domain.AdminRoleID {
				return nil, fmt.Errorf("%w: address the admin role through its scope's container", domain.ErrInvalidInput)
			}
			return nil, fmt.Errorf("%w: role %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerRoles(scope)
		if err != nil {
			return nil, err
		}
		r := cont[id]
		switch key {
		case "members":
			var v map[string]bool
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			r.Members = v
		case "layout":
			var v map[string]int
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			r.Layout = v
		default:
			return nil, fmt.Errorf("%w: unknown role attribute %q", domain.ErrInvalidInput, key)
		}
		return nil, nil

	case domain.KindLoop:
		scope, ok := s.idx.loops[id]
		if !ok {
			return nil, fmt.Errorf("%w: loop %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerLoops(scope)
		if err != nil {
			return nil, err
		}
		l := cont[id]
		switch key {
		case "role_permissions":
			var v map[string]domain.Permission
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			l.RolePermissions = v
		case "sip":
			oldWhitelist := append([]domain.SIPWhitelistEntry(nil), whitelistOfLoop(l)...)
			var v *domain.SIPConfig
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			l.SIP = v
			diff := sipdiff.Diff(
				map[string]*domain.Loop{l.ID: {ID: l.ID, SIP: &domain.SIPConfig{Whitelist: oldWhitelist}}},
				map[string]*domain.Loop{l.ID: l},
			)
			return diff, nil
		case "multicast":
			var v domain.Multicast
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			l.Multicast = v
		case "recording":
			var v bool
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			l.Recording = v
		case "roll_after_secs":
			var v int
			if err := decodeInto(value, &v); err != nil {
				return nil, err
			}
			l.RollAfterSecs = v
		default:
			return nil, fmt.Errorf("%w: unknown loop attribute %q", domain.ErrInvalidInput, key)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown kind", domain.ErrInvalidInput)
}

func whitelistOfLoop(l *domain.Loop) []domain.SIPWhitelistEntry {
	if l == nil || l.SIP == nil {
		return nil
	}
	return l.SIP.Whitelist
}

func flattenProjectLoops(projects map[string]*domain.Project) map[string]*domain.Loop {
	out := map[string]*domain.Loop{}
	for _, p := range projects {
		for id, l := range p.Loops {
			out[id] = l
		}
	}
	return out
}

// replaceUsers/replaceRoles/replaceLoops update the index side of a
// children-set swap: old ids no longer present are unindexed, new ids are
// indexed to scope. Ownership never transfers across scopes (the caller
// has already checked this via verifyChildrenSets).
func (s *Store) replaceUsers(old, next map[string]*domain.User, scope domain.Scope) {
	for id := range old {
		if _, present := next[id]; !present {
			delete(s.idx.users, id)
		}
	}
	for id := range next {
		s.idx.users[id] = scope
	}
}

func (s *Store) replaceRoles(old, next map[string]*domain.Role, scope domain.Scope) {
	for id := range old {
		if id == domain.AdminRoleID {
			continue
		}
		if _, present := next[id]; !present {
			delete(s.idx.roles, id)
		}
	}
	for id := range next {
		if id == domain.AdminRoleID {
			continue
		}
		s.idx.roles[id] = scope
	}
}

func (s *Store) replaceLoops(old, next map[string]*domain.Loop, scope domain.Scope) {
	for id := range old {
		if _, present := next[id]; !present {
			delete(s.idx.loops, id)
		}
	}
	for id := range next {
		s.idx.loops[id] = scope
	}
}

func (s *Store) replaceProjects(old, next map[string]*domain.Project, domainID string) {
	for id := range old {
		if _, present := next[id]; !present {
			delete(s.idx.projects, id)
			for uid := range old[id].Users {
				delete(s.idx.users, uid)
			}
			for rid := range old[id].Roles {
				delete(s.idx.roles, rid)
			}
			for lid := range old[id].Loops {
				delete(s.idx.loops, lid)
			}
		}
	}
	for id, p := range next {
		s.idx.projects[id] = domainID
		scope := domain.Scope{DomainID: domainID, ProjectID: id}
		for uid := range p.Users {
			s.idx.users[uid] = scope
		}
		for rid := range p.Roles {
			if rid == domain.AdminRoleID {
				continue
			}
			s.idx.roles[rid] = scope
		}
		for lid := range p.Loops {
			s.idx.loops[lid] = scope
		}
	}
}
