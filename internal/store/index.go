package store

import "github.com/ov-vocsdb/vocsdb/internal/domain"

// indices are the five secondary indices (I1/I2): one per entity kind,
// mapping id to the scope it is directly stored under. Domains have no
// parent scope, so their index is a plain set. The admin role is
// intentionally never entered into the role index (I1's reserved exception).
type indices struct {
	domains  map[string]struct{}
	projects map[string]string // project id -> owning domain id
	users    map[string]domain.Scope
	roles    map[string]domain.Scope
	loops    map[string]domain.Scope
}

func newIndices() *indices {
	return &indices{
		domains:  map[string]struct{}{},
		projects: map[string]string{},
		users:    map[string]domain.Scope{},
		roles:    map[string]domain.Scope{},
		loops:    map[string]domain.Scope{},
	}
}

// rebuild walks the tree breadth-first and repopulates every index from
// scratch, the only path an injected auth snapshot goes through.
func rebuild(root map[string]*domain.Domain) *indices {
	idx := newIndices()
	for domID, d := range root {
		idx.domains[domID] = struct{}{}

		for uid := range d.Users {
			idx.users[uid] = domain.Scope{DomainID: domID}
		}
		for rid, r := range d.Roles {
			if rid == domain.AdminRoleID {
				continue
			}
			_ = r
			idx.roles[rid] = domain.Scope{DomainID: domID}
		}
		for lid := range d.Loops {
			idx.loops[lid] = domain.Scope{DomainID: domID}
		}

		for pid, p := range d.Projects {
			idx.projects[pid] = domID
			for uid := range p.Users {
				idx.users[uid] = domain.Scope{DomainID: domID, ProjectID: pid}
			}
			for rid := range p.Roles {
				if rid == domain.AdminRoleID {
					continue
				}
				idx.roles[rid] = domain.Scope{DomainID: domID, ProjectID: pid}
			}
			for lid := range p.Loops {
				idx.loops[lid] = domain.Scope{DomainID: domID, ProjectID: pid}
			}
		}
	}
	return idx
}
