package store

import (
	"fmt"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

func (s *Store) scopeFromKindID(scopeKind domain.ScopeKind, scopeID string) (domain.Scope, error) {
	if scopeKind == domain.ScopeDomain {
		if _, ok := s.root[scopeID]; !ok {
			return domain.Scope{}, fmt.Errorf("%w: domain %q", domain.ErrNotFound, scopeID)
		}
		return domain.Scope{DomainID: scopeID}, nil
	}
	domID, ok := s.idx.projects[scopeID]
	if !ok {
		return domain.Scope{}, fmt.Errorf("%w: project %q", domain.ErrNotFound, scopeID)
	}
	return domain.Scope{DomainID: domID, ProjectID: scopeID}, nil
}

// Create adds a new entity of kind under the given scope. id must not
// already be in use by kind (except the reserved "admin" role, once per
// scope).
func (s *Store) Create(kind domain.Kind, id string, scopeKind domain.ScopeKind, scopeID string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return domain.ErrLockTimeout
	}
	defer s.lock.Release()

	switch kind {
	case domain.KindDomain:
		if scopeKind != domain.ScopeDomain {
			return fmt.Errorf("%w: a domain's scope_kind must be domain", domain.ErrInvalidInput)
		}
		if _, exists := s.root[id]; exists {
			return fmt.Errorf("%w: domain %q", domain.ErrAlreadyExists, id)
		}
		s.root[id] = domain.NewDomain(id)
		s.idx.domains[id] = struct{}{}
		return nil

	case domain.KindProject:
		if scopeKind != domain.ScopeDomain {
			return fmt.Errorf("%w: a project's scope_kind must be domain", domain.ErrInvalidInput)
		}
		d, ok := s.root[scopeID]
		if !ok {
			return fmt.Errorf("%w: domain %q", domain.ErrNotFound, scopeID)
		}
		if _, exists := s.idx.projects[id]; exists {
			return fmt.Errorf("%w: project %q", domain.ErrAlreadyExists, id)
		}
		d.Projects[id] = domain.NewProject(id)
		s.idx.projects[id] = scopeID
		return nil

	case domain.KindUser:
		scope, err := s.scopeFromKindID(scopeKind, scopeID)
		if err != nil {
			return err
		}
		_, cont, err := s.containerUsers(scope)
		if err != nil {
			return err
		}
		if _, exists := s.idx.users[id]; exists {
			return fmt.Errorf("%w: user %q", domain.ErrAlreadyExists, id)
		}
		cont[id] = domain.NewUser(id)
		s.idx.users[id] = scope
		return nil

	case domain.KindRole:
		scope, err := s.scopeFromKindID(scopeKind, scopeID)
		if err != nil {
			return err
		}
		_, cont, err := s.containerRoles(scope)
		if err != nil {
			return err
		}
		if id == domain.AdminRoleID {
			if _, exists := cont[id]; exists {
				return fmt.Errorf("%w: role %q already exists in this scope", domain.ErrAlreadyExists, id)
			}
			cont[id] = domain.NewRole(id)
			return nil
		}
		if _, exists := s.idx.roles[id]; exists {
			return fmt.Errorf("%w: role %q", domain.ErrAlreadyExists, id)
		}
		cont[id] = domain.NewRole(id)
		s.idx.roles[id] = scope
		return nil

	case domain.KindLoop:
		scope, err := s.scopeFromKindID(scopeKind, scopeID)
		if err != nil {
			return err
		}
		_, cont, err := s.containerLoops(scope)
		if err != nil {
			return err
		}
		if _, exists := s.idx.loops[id]; exists {
			return fmt.Errorf("%w: loop %q", domain.ErrAlreadyExists, id)
		}
		cont[id] = domain.NewLoop(id)
		s.idx.loops[id] = scope
		return nil
	}
	return fmt.Errorf("%w: unknown kind", domain.ErrInvalidInput)
}

// Delete removes an entity, cascading to descendants and scrubbing
// references from other entities' children sets.
func (s *Store) Delete(kind domain.Kind, id string) (*MutationResult, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	switch kind {
	case domain.KindDomain:
		d, ok := s.root[id]
		if !ok {
			return nil, fmt.Errorf("%w: domain %q", domain.ErrNotFound, id)
		}
		for uid := range d.Users {
			delete(s.idx.users, uid)
		}
		for rid := range d.Roles {
			delete(s.idx.roles, rid)
		}
		for lid := range d.Loops {
			delete(s.idx.loops, lid)
		}
		for pid, p := range d.Projects {
			for uid := range p.Users {
				delete(s.idx.users, uid)
			}
			for rid := range p.Roles {
				delete(s.idx.roles, rid)
			}
			for lid := range p.Loops {
				delete(s.idx.loops, lid)
			}
			delete(s.idx.projects, pid)
		}
		delete(s.root, id)
		delete(s.idx.domains, id)
		return &MutationResult{}, nil

	case domain.KindProject:
		domID, ok := s.idx.projects[id]
		if !ok {
			return nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
		}
		d := s.root[domID]
		p := d.Projects[id]
		for uid := range p.Users {
			delete(s.idx.users, uid)
		}
		for rid := range p.Roles {
			delete(s.idx.roles, rid)
		}
		for lid := range p.Loops {
			delete(s.idx.loops, lid)
		}
		delete(d.Projects, id)
		delete(s.idx.projects, id)
		return &MutationResult{}, nil

	case domain.KindUser:
		scope, ok := s.idx.users[id]
		if !ok {
			return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerUsers(scope)
		if err != nil {
			return nil, err
		}
		delete(cont, id)
		delete(s.idx.users, id)
		removeUserFromAllRoles(s.root, id)
		return &MutationResult{}, nil

	case domain.KindRole:
		if id == domain.AdminRoleID {
			return nil, fmt.Errorf("%w: the admin role is deleted implicitly with its scope", domain.ErrInvalidInput)
		}
		scope, ok := s.idx.roles[id]
		if !ok {
			return nil, fmt.Errorf("%w: role %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerRoles(scope)
		if err != nil {
			return nil, err
		}
		delete(cont, id)
		delete(s.idx.roles, id)
		removeRoleFromAllLoops(s.root, id)
		return &MutationResult{}, nil

	case domain.KindLoop:
		scope, ok := s.idx.loops[id]
		if !ok {
			return nil, fmt.Errorf("%w: loop %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerLoops(scope)
		if err != nil {
			return nil, err
		}
		delete(cont, id)
		delete(s.idx.loops, id)
		// No synthetic revoke is emitted for a wholly-removed loop; that is
		// left to the caller's own downstream cleanup.
		return &MutationResult{}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind", domain.ErrInvalidInput)
}

func removeUserFromAllRoles(root map[string]*domain.Domain, userID string) {
	for _, d := range root {
		for _, r := range d.Roles {
			delete(r.Members, userID)
		}
		for _, p := range d.Projects {
			for _, r := range p.Roles {
				delete(r.Members, userID)
			}
		}
	}
}

func removeRoleFromAllLoops(root map[string]*domain.Domain, roleID string) {
	for _, d := range root {
		for _, l := range d.Loops {
			delete(l.RolePermissions, roleID)
			if l.SIP != nil {
				delete(l.SIP.RoleCalloutPermissions, roleID)
			}
		}
		for _, p := range d.Projects {
			for _, l := range p.Loops {
				delete(l.RolePermissions, roleID)
				if l.SIP != nil {
					delete(l.SIP.RoleCalloutPermissions, roleID)
				}
			}
		}
	}
}
