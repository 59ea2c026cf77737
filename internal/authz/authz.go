// Package authz implements the auth & admin engine: role membership,
// domain/project admin checks with inheritance, the permission lattice
// applied to loop role-permissions, and SIP callout/callend checks.
package authz

import "github.com/ov-vocsdb/vocsdb/internal/domain"

// IsUserInRole reports whether role.Members contains user.
func IsUserInRole(role *domain.Role, userID string) bool {
	return role.HasMember(userID)
}

// RoleHasPermissionOnLoop reads loop.RolePermissions[role.ID], defaulting
// to NONE when absent.
func RoleHasPermissionOnLoop(role *domain.Role, loop *domain.Loop) domain.Permission {
	if role == nil || loop == nil || loop.RolePermissions == nil {
		return domain.PermissionNone
	}
	return loop.RolePermissions[role.ID]
}

// IsDomainAdmin reports whether d has an "admin" role whose members
// contain userID.
func IsDomainAdmin(d *domain.Domain, userID string) bool {
	if d == nil {
		return false
	}
	admin, ok := d.Roles[domain.AdminRoleID]
	return ok && admin.HasMember(userID)
}

// IsProjectAdmin reports whether p has an "admin" role listing userID, or
// userID is a domain-admin of p's owning domain. Inheritance is one-way:
// domain admin implies project admin, never the reverse.
func IsProjectAdmin(p *domain.Project, owningDomain *domain.Domain, userID string) bool {
	if p != nil {
		if admin, ok := p.Roles[domain.AdminRoleID]; ok && admin.HasMember(userID) {
			return true
		}
	}
	return IsDomainAdmin(owningDomain, userID)
}

// AdminDomain is one entry of admin_domains: the id of a domain the user
// administers.
type AdminDomain struct {
	ID string `json:"id"`
}

// AdminProject is one entry of admin_projects: the project, its name (its
// id, since projects carry no separate display name) and its owning domain.
type AdminProject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// SIPAllowCallout reports whether role may place an outbound call on loop.
// A loop with no SIP configuration allows every role.
func SIPAllowCallout(loop *domain.Loop, roleID string) bool {
	if loop == nil || loop.SIP == nil {
		return true
	}
	return loop.SIP.RoleCalloutPermissions[roleID]
}

// SIPAllowCallend reports whether role may terminate a call on loop. A loop
// with no SIP configuration allows every role; otherwise the role must have
// an entry at all (any value, including false, counts as present).
func SIPAllowCallend(loop *domain.Loop, roleID string) bool {
	if loop == nil || loop.SIP == nil {
		return true
	}
	_, ok := loop.SIP.RoleCalloutPermissions[roleID]
	return ok
}

// GrantDomainAdmin ensures d has an admin role with userID as a member.
// Idempotent: calling it twice leaves the same state as calling it once.
func GrantDomainAdmin(d *domain.Domain, userID string) {
	role, ok := d.Roles[domain.AdminRoleID]
	if !ok {
		role = domain.NewRole(domain.AdminRoleID)
		d.Roles[domain.AdminRoleID] = role
	}
	if role.Members == nil {
		role.Members = map[string]bool{}
	}
	role.Members[userID] = true
}

// GrantProjectAdmin ensures p has an admin role with userID as a member.
func GrantProjectAdmin(p *domain.Project, userID string) {
	role, ok := p.Roles[domain.AdminRoleID]
	if !ok {
		role = domain.NewRole(domain.AdminRoleID)
		p.Roles[domain.AdminRoleID] = role
	}
	if role.Members == nil {
		role.Members = map[string]bool{}
	}
	role.Members[userID] = true
}
