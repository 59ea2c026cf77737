package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserStrippedRemovesPasswordHash(t *testing.T) {
	u := NewUser("alice")
	u.PasswordHash = "scrypt$..."
	u.Data = map[string]any{"volume": 80}

	stripped := u.Stripped()

	assert.Empty(t, stripped.PasswordHash)
	assert.Equal(t, 80, stripped.Data["volume"])
	assert.NotEmpty(t, u.PasswordHash, "Stripped must not mutate the original")
}

func TestRoleCloneIsIndependentOfOriginal(t *testing.T) {
	r := NewRole("r1")
	r.Members["alice"] = true
	r.Layout = map[string]int{"loop1": 1}

	clone := r.Clone()
	clone.Members["bob"] = true
	clone.Layout["loop2"] = 2

	assert.False(t, r.Members["bob"])
	assert.NotContains(t, r.Layout, "loop2")
}

func TestLoopCloneDeepCopiesSIPConfig(t *testing.T) {
	l := NewLoop("loop1")
	l.SIP = &SIPConfig{Whitelist: []SIPWhitelistEntry{{Caller: "100"}}}

	clone := l.Clone()
	clone.SIP.Whitelist[0].Caller = "200"

	assert.Equal(t, "100", l.SIP.Whitelist[0].Caller)
}

func TestDomainCloneDeepCopiesProjectsAndRoles(t *testing.T) {
	d := NewDomain("acme")
	d.Projects["proj1"] = NewProject("proj1")
	d.Roles["admin"] = NewRole("admin")
	d.Roles["admin"].Members["alice"] = true

	clone := d.Clone()
	clone.Projects["proj2"] = NewProject("proj2")
	clone.Roles["admin"].Members["bob"] = true

	assert.NotContains(t, d.Projects, "proj2")
	assert.False(t, d.Roles["admin"].Members["bob"])
}

func TestSIPWhitelistEntryEqual(t *testing.T) {
	a := SIPWhitelistEntry{Caller: "100", Callee: "200"}
	b := SIPWhitelistEntry{Caller: "100", Callee: "200"}
	c := SIPWhitelistEntry{Caller: "100"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestDefaultKeysetLayoutIsStable(t *testing.T) {
	a := DefaultKeysetLayout()
	b := DefaultKeysetLayout()

	assert.Equal(t, a, b)
	a["layout"] = "mutated"
	assert.Equal(t, "auto_grid", b["layout"], "callers must not share the same backing map")
}
