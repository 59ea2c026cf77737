package domain

// SIPWhitelistEntry is one (caller, callee) pair permitted to dial into a
// loop. Either field may be empty; two entries are equal only when both
// fields match literally, so an absent caller only matches another absent
// caller.
type SIPWhitelistEntry struct {
	Caller string `json:"caller,omitempty"`
	Callee string `json:"callee,omitempty"`
}

// Equal implements the literal-field-match equality used by the whitelist
// differ and by verify/update.
func (e SIPWhitelistEntry) Equal(other SIPWhitelistEntry) bool {
	return e.Caller == other.Caller && e.Callee == other.Callee
}

// SIPConfig is a loop's telephony configuration.
type SIPConfig struct {
	Whitelist              []SIPWhitelistEntry `json:"whitelist,omitempty"`
	RoleCalloutPermissions map[string]bool      `json:"role_callout_permissions,omitempty"`
}

func (c *SIPConfig) Clone() *SIPConfig {
	if c == nil {
		return nil
	}
	out := &SIPConfig{}
	if c.Whitelist != nil {
		out.Whitelist = append([]SIPWhitelistEntry(nil), c.Whitelist...)
	}
	if c.RoleCalloutPermissions != nil {
		out.RoleCalloutPermissions = make(map[string]bool, len(c.RoleCalloutPermissions))
		for k, v := range c.RoleCalloutPermissions {
			out.RoleCalloutPermissions[k] = v
		}
	}
	return out
}

// Multicast is a loop's media endpoint.
type Multicast struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// Loop is a named audio channel with a role-permission table and optional
// SIP configuration.
type Loop struct {
	ID              string                `json:"id"`
	RolePermissions map[string]Permission `json:"role_permissions,omitempty"`
	SIP             *SIPConfig            `json:"sip,omitempty"`
	Multicast       Multicast             `json:"multicast"`
	Recording       bool                  `json:"recording,omitempty"`
	RollAfterSecs   int                   `json:"roll_after_secs,omitempty"`
}

func NewLoop(id string) *Loop {
	return &Loop{ID: id, RolePermissions: map[string]Permission{}}
}

func (l *Loop) Clone() *Loop {
	if l == nil {
		return nil
	}
	out := &Loop{
		ID:            l.ID,
		Multicast:     l.Multicast,
		Recording:     l.Recording,
		RollAfterSecs: l.RollAfterSecs,
		SIP:           l.SIP.Clone(),
	}
	if l.RolePermissions != nil {
		out.RolePermissions = make(map[string]Permission, len(l.RolePermissions))
		for k, v := range l.RolePermissions {
			out.RolePermissions[k] = v
		}
	}
	return out
}

// Role is a named bundle of members and, optionally, a per-loop keypad
// layout. A role named "admin" is the reserved administrator role of its
// scope (I6) and is never entered into the role index (I1 exception).
type Role struct {
	ID      string         `json:"id"`
	Members map[string]bool `json:"members,omitempty"`
	Layout  map[string]int `json:"layout,omitempty"`
}

const AdminRoleID = "admin"

func NewRole(id string) *Role {
	return &Role{ID: id, Members: map[string]bool{}}
}

func (r *Role) Clone() *Role {
	if r == nil {
		return nil
	}
	out := &Role{ID: r.ID}
	if r.Members != nil {
		out.Members = make(map[string]bool, len(r.Members))
		for k, v := range r.Members {
			out.Members[k] = v
		}
	}
	if r.Layout != nil {
		out.Layout = make(map[string]int, len(r.Layout))
		for k, v := range r.Layout {
			out.Layout[k] = v
		}
	}
	return out
}

func (r *Role) HasMember(userID string) bool {
	return r != nil && r.Members[userID]
}

// User is an account, optionally password-authenticated or LDAP-managed,
// plus an opaque client-preference bag.
type User struct {
	ID           string         `json:"id"`
	PasswordHash string         `json:"password,omitempty"`
	LDAP         bool           `json:"ldap,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NewUser(id string) *User {
	return &User{ID: id}
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := &User{ID: u.ID, PasswordHash: u.PasswordHash, LDAP: u.LDAP}
	if u.Data != nil {
		out.Data = make(map[string]any, len(u.Data))
		for k, v := range u.Data {
			out.Data[k] = v
		}
	}
	return out
}

// Stripped returns a clone with the password hash removed, the only form a
// User may take once it crosses the store boundary to an external reader
// (I5).
func (u *User) Stripped() *User {
	out := u.Clone()
	if out != nil {
		out.PasswordHash = ""
	}
	return out
}

// Project is a domain's child container owning its own users, roles and
// loops (I3: scope locality).
type Project struct {
	ID    string           `json:"id"`
	Users map[string]*User `json:"users,omitempty"`
	Roles map[string]*Role `json:"roles,omitempty"`
	Loops map[string]*Loop `json:"loops,omitempty"`
}

func NewProject(id string) *Project {
	return &Project{
		ID:    id,
		Users: map[string]*User{},
		Roles: map[string]*Role{},
		Loops: map[string]*Loop{},
	}
}

func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := NewProject(p.ID)
	for k, v := range p.Users {
		out.Users[k] = v.Clone()
	}
	for k, v := range p.Roles {
		out.Roles[k] = v.Clone()
	}
	for k, v := range p.Loops {
		out.Loops[k] = v.Clone()
	}
	return out
}

// Domain is the top-level tenant bucket, owning projects plus its own
// top-level users/roles/loops and named keyset layouts (state-plane presets
// addressed via set_keyset_layout/get_keyset_layout, stored here because the
// data model owns them as a domain child).
type Domain struct {
	ID       string                    `json:"id"`
	Projects map[string]*Project       `json:"projects,omitempty"`
	Users    map[string]*User          `json:"users,omitempty"`
	Roles    map[string]*Role          `json:"roles,omitempty"`
	Loops    map[string]*Loop          `json:"loops,omitempty"`
	Layouts  map[string]map[string]any `json:"layouts,omitempty"`
}

func NewDomain(id string) *Domain {
	return &Domain{
		ID:       id,
		Projects: map[string]*Project{},
		Users:    map[string]*User{},
		Roles:    map[string]*Role{},
		Loops:    map[string]*Loop{},
		Layouts:  map[string]map[string]any{},
	}
}

func (d *Domain) Clone() *Domain {
	if d == nil {
		return nil
	}
	out := NewDomain(d.ID)
	for k, v := range d.Projects {
		out.Projects[k] = v.Clone()
	}
	for k, v := range d.Users {
		out.Users[k] = v.Clone()
	}
	for k, v := range d.Roles {
		out.Roles[k] = v.Clone()
	}
	for k, v := range d.Loops {
		out.Loops[k] = v.Clone()
	}
	for k, v := range d.Layouts {
		cp := make(map[string]any, len(v))
		for kk, vv := range v {
			cp[kk] = vv
		}
		out.Layouts[k] = cp
	}
	return out
}

// DefaultKeysetLayout is the deterministic default returned when a named
// keyset layout has never been set on a domain.
func DefaultKeysetLayout() map[string]any {
	return map[string]any{
		"site_scaling": 1.0,
		"name_scaling": 1.5,
		"font_scaling": 1.0,
		"layout":       "auto_grid",
		"loop_size":    "15.625rem",
	}
}
