package authz

import (
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

// Engine answers tree-wide admin questions (admin_domains, admin_projects)
// that the pure functions in authz.go can't, since they need every domain
// and project rather than one already-fetched entity.
type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// AdminDomains lists every domain where user is a domain-admin.
func (e *Engine) AdminDomains(userID string) ([]AdminDomain, error) {
	root, err := e.store.Export()
	if err != nil {
		return nil, err
	}
	var out []AdminDomain
	for id, d := range root {
		if IsDomainAdmin(d, userID) {
			out = append(out, AdminDomain{ID: id})
		}
	}
	return out, nil
}

// AdminProjects lists every project where user is a project-admin (via its
// own admin role or domain-admin inheritance).
func (e *Engine) AdminProjects(userID string) ([]AdminProject, error) {
	root, err := e.store.Export()
	if err != nil {
		return nil, err
	}
	var out []AdminProject
	for domID, d := range root {
		for pid, p := range d.Projects {
			if IsProjectAdmin(p, d, userID) {
				out = append(out, AdminProject{ID: pid, Name: pid, Domain: domID})
			}
		}
	}
	return out, nil
}

// IsDomainAdminByID resolves domainID through the store before checking.
func (e *Engine) IsDomainAdminByID(domainID, userID string) (bool, error) {
	v, err := e.store.Get(domain.KindDomain, domainID)
	if err != nil {
		return false, err
	}
	d, _ := v.(*domain.Domain)
	return IsDomainAdmin(d, userID), nil
}

// IsProjectAdminByID resolves projectID (and its owning domain) through the
// store before checking.
func (e *Engine) IsProjectAdminByID(projectID, userID string) (bool, error) {
	scope, err := e.store.GetDomainOf(domain.KindProject, projectID)
	if err != nil {
		return false, err
	}
	dv, err := e.store.Get(domain.KindDomain, scope.DomainID)
	if err != nil {
		return false, err
	}
	d, _ := dv.(*domain.Domain)
	pv, err := e.store.Get(domain.KindProject, projectID)
	if err != nil {
		return false, err
	}
	p, _ := pv.(*domain.Project)
	return IsProjectAdmin(p, d, userID), nil
}

// IsAdminOfScope reports whether user administers the given scope:
// project-admin for a project scope, domain-admin for a domain scope.
func (e *Engine) IsAdminOfScope(scope domain.Scope, userID string) (bool, error) {
	if scope.Kind() == domain.ScopeProject {
		return e.IsProjectAdminByID(scope.ProjectID, userID)
	}
	return e.IsDomainAdminByID(scope.DomainID, userID)
}

// GrantDomainAdmin and GrantProjectAdmin apply their pure counterparts
// through the store's normal mutation path so the result is indexed and
// persisted like any other edit.
func (e *Engine) GrantDomainAdmin(domainID, userID string) error {
	v, err := e.store.Get(domain.KindDomain, domainID)
	if err != nil {
		return err
	}
	d, _ := v.(*domain.Domain)
	GrantDomainAdmin(d, userID)
	_, err = e.store.UpdateKey(domain.KindDomain, domainID, "roles", d.Roles)
	return err
}

func (e *Engine) GrantProjectAdmin(projectID, userID string) error {
	v, err := e.store.Get(domain.KindProject, projectID)
	if err != nil {
		return err
	}
	p, _ := v.(*domain.Project)
	GrantProjectAdmin(p, userID)
	_, err = e.store.UpdateKey(domain.KindProject, projectID, "roles", p.Roles)
	return err
}
