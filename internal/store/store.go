// Package store is the authoritative, indexed keeper of the auth tree:
// Domain -> Project -> {User, Role, Loop}. Every public method acquires the
// single coarse lock via a bounded try-lock and releases it on every exit
// path; mutation methods leave the tree untouched on any failure.
package store

import (
	"fmt"
	"time"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// Config configures the store's lock timeout and password KDF.
type Config struct {
	LockTimeout time.Duration
	KDF         auth.KDFParams
}

// MutationResult carries the side effects of a mutation that the caller
// (the Request Dispatcher) must fold into the change-notification event.
type MutationResult struct {
	LoopDiffs map[string]domain.LoopDiff
}

// Store is the in-memory authoritative tree plus its five secondary
// indices, guarded by one coarse lock.
type Store struct {
	cfg Config

	lock *tryLock
	root map[string]*domain.Domain
	idx  *indices
}

func New(cfg Config) *Store {
	return &Store{
		cfg:  cfg,
		lock: newTryLock(),
		root: map[string]*domain.Domain{},
		idx:  newIndices(),
	}
}

// Load injects a fresh tree (e.g. from a persistence snapshot) and rebuilds
// all five indices from scratch.
func (s *Store) Load(root map[string]*domain.Domain) error {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return domain.ErrLockTimeout
	}
	defer s.lock.Release()

	if root == nil {
		root = map[string]*domain.Domain{}
	}
	s.root = root
	s.idx = rebuild(s.root)
	return nil
}

// Export returns a deep copy of the entire tree, the counterpart to Load
// used by the persistence bridge's save path. Password hashes are included
// (I5 only strips passwords from external reads, not from the internal
// snapshot).
func (s *Store) Export() (map[string]*domain.Domain, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	out := make(map[string]*domain.Domain, len(s.root))
	for id, d := range s.root {
		out[id] = d.Clone()
	}
	return out, nil
}

// resolveScope locates the Domain (and, for a project scope, the Project)
// that a scope refers to. Must be called with the lock held.
func (s *Store) resolveScope(scope domain.Scope) (*domain.Domain, *domain.Project, error) {
	d, ok := s.root[scope.DomainID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: domain %q", domain.ErrNotFound, scope.DomainID)
	}
	if scope.ProjectID == "" {
		return d, nil, nil
	}
	p, ok := d.Projects[scope.ProjectID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, scope.ProjectID)
	}
	return d, p, nil
}

// Get returns a deep copy of the requested entity's subtree with passwords
// stripped at every depth.
func (s *Store) Get(kind domain.Kind, id string) (any, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()
	return s.getLocked(kind, id)
}

func (s *Store) getLocked(kind domain.Kind, id string) (any, error) {
	switch kind {
	case domain.KindDomain:
		d, ok := s.root[id]
		if !ok {
			return nil, fmt.Errorf("%w: domain %q", domain.ErrNotFound, id)
		}
		return stripDomain(d.Clone()), nil

	case domain.KindProject:
		domID, ok := s.idx.projects[id]
		if !ok {
			return nil, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
		}
		p := s.root[domID].Projects[id]
		return stripProject(p.Clone()), nil

	case domain.KindUser:
		scope, ok := s.idx.users[id]
		if !ok {
			return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerUsers(scope)
		if err != nil {
			return nil, err
		}
		u, ok := cont[id]
		if !ok {
			return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
		}
		return u.Stripped(), nil

	case domain.KindRole:
		if id == domain.AdminRoleID {
			return nil, fmt.Errorf("%w: role %q is not individually addressable", domain.ErrNotFound, id)
		}
		scope, ok := s.idx.roles[id]
		if !ok {
			return nil, fmt.Errorf("%w: role %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerRoles(scope)
		if err != nil {
			return nil, err
		}
		r, ok := cont[id]
		if !ok {
			return nil, fmt.Errorf("%w: role %q", domain.ErrNotFound, id)
		}
		return r.Clone(), nil

	case domain.KindLoop:
		scope, ok := s.idx.loops[id]
		if !ok {
			return nil, fmt.Errorf("%w: loop %q", domain.ErrNotFound, id)
		}
		_, cont, err := s.containerLoops(scope)
		if err != nil {
			return nil, err
		}
		l, ok := cont[id]
		if !ok {
			return nil, fmt.Errorf("%w: loop %q", domain.ErrNotFound, id)
		}
		return l.Clone(), nil
	}
	return nil, fmt.Errorf("%w: unknown kind", domain.ErrInvalidInput)
}

func stripDomain(d *domain.Domain) *domain.Domain {
	if d == nil {
		return nil
	}
	for id, u := range d.Users {
		d.Users[id] = u.Stripped()
	}
	for _, p := range d.Projects {
		stripProject(p)
	}
	return d
}

func stripProject(p *domain.Project) *domain.Project {
	if p == nil {
		return nil
	}
	for id, u := range p.Users {
		p.Users[id] = u.Stripped()
	}
	return p
}

// GetKey returns a deep copy of one top-level attribute. "password" is
// never returned irrespective of caller (I5).
func (s *Store) GetKey(kind domain.Kind, id, key string) (any, error) {
	if key == "password" {
		return nil, nil
	}
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	entity, err := s.getLocked(kind, id)
	if err != nil {
		return nil, err
	}
	return attr(entity, key)
}

// GetDomainOf returns the scope an entity belongs to.
func (s *Store) GetDomainOf(kind domain.Kind, id string) (domain.Scope, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return domain.Scope{}, domain.ErrLockTimeout
	}
	defer s.lock.Release()
	return s.scopeOfLocked(kind, id)
}

func (s *Store) scopeOfLocked(kind domain.Kind, id string) (domain.Scope, error) {
	switch kind {
	case domain.KindDomain:
		if _, ok := s.root[id]; !ok {
			return domain.Scope{}, fmt.Errorf("%w: domain %q", domain.ErrNotFound, id)
		}
		return domain.Scope{DomainID: id}, nil
	case domain.KindProject:
		domID, ok := s.idx.projects[id]
		if !ok {
			return domain.Scope{}, fmt.Errorf("%w: project %q", domain.ErrNotFound, id)
		}
		return domain.Scope{DomainID: domID, ProjectID: id}, nil
	case domain.KindUser:
		scope, ok := s.idx.users[id]
		if !ok {
			return domain.Scope{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
		}
		return scope, nil
	case domain.KindRole:
		scope, ok := s.idx.roles[id]
		if !ok {
			return domain.Scope{}, fmt.Errorf("%w: role %q", domain.ErrNotFound, id)
		}
		return scope, nil
	case domain.KindLoop:
		scope, ok := s.idx.loops[id]
		if !ok {
			return domain.Scope{}, fmt.Errorf("%w: loop %q", domain.ErrNotFound, id)
		}
		return scope, nil
	}
	return domain.Scope{}, fmt.Errorf("%w: unknown kind", domain.ErrInvalidInput)
}

// CheckIDExists reports whether id is already in use by any entity kind, or
// (when scope is non-nil) specifically within that scope's own children
// sets. Used by check_id_exists; the bulk-replace uniqueness rules consult
// the per-kind indices through checkIDsFree instead.
func (s *Store) CheckIDExists(id string, scope *domain.Scope) bool {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return false
	}
	defer s.lock.Release()
	return s.idExistsLocked(id, scope)
}

func (s *Store) idExistsLocked(id string, scope *domain.Scope) bool {
	if scope == nil {
		if _, ok := s.root[id]; ok {
			return true
		}
		if _, ok := s.idx.projects[id]; ok {
			return true
		}
		if _, ok := s.idx.users[id]; ok {
			return true
		}
		if _, ok := s.idx.roles[id]; ok {
			return true
		}
		if _, ok := s.idx.loops[id]; ok {
			return true
		}
		return false
	}
	d, p, err := s.resolveScope(*scope)
	if err != nil {
		return false
	}
	if p != nil {
		_, inUsers := p.Users[id]
		_, inRoles := p.Roles[id]
		_, inLoops := p.Loops[id]
		return inUsers || inRoles || inLoops
	}
	_, inUsers := d.Users[id]
	_, inRoles := d.Roles[id]
	_, inLoops := d.Loops[id]
	_, inProjects := d.Projects[id]
	return inUsers || inRoles || inLoops || inProjects
}

// DomainUsers returns a deep copy of a domain's top-level users (password
// hashes included), the view the LDAP import worker reconciles against.
func (s *Store) DomainUsers(domainID string) (map[string]*domain.User, error) {
	if !s.lock.Acquire(s.cfg.LockTimeout) {
		return nil, domain.ErrLockTimeout
	}
	defer s.lock.Release()

	d, ok := s.root[domainID]
	if !ok {
		return nil, fmt.Errorf("%w: domain %q", domain.ErrNotFound, domainID)
	}
	out := make(map[string]*domain.User, len(d.Users))
	for id, u := range d.Users {
		out[id] = u.Clone()
	}
	return out, nil
}

// container* helpers return the map the entity of that kind lives in for a
// given scope, plus the owning domain.
func (s *Store) containerUsers(scope domain.Scope) (*domain.Domain, map[string]*domain.User, error) {
	d, p, err := s.resolveScope(scope)
	if err != nil {
		return nil, nil, err
	}
	if p != nil {
		return d, p.Users, nil
	}
	return d, d.Users, nil
}

func (s *Store) containerRoles(scope domain.Scope) (*domain.Domain, map[string]*domain.Role, error) {
	d, p, err := s.resolveScope(scope)
	if err != nil {
		return nil, nil, err
	}
	if p != nil {
		return d, p.Roles, nil
	}
	return d, d.Roles, nil
}

func (s *Store) containerLoops(scope domain.Scope) (*domain.Domain, map[string]*domain.Loop, error) {
	d, p, err := s.resolveScope(scope)
	if err != nil {
		return nil, nil, err
	}
	if p != nil {
		return d, p.Loops, nil
	}
	return d, d.Loops, nil
}
