package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromStringRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindDomain, KindProject, KindLoop, KindRole, KindUser} {
		parsed, ok := KindFromString(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
}

func TestKindFromStringRejectsUnknown(t *testing.T) {
	_, ok := KindFromString("not-a-kind")
	assert.False(t, ok)
}

func TestScopeKindIsProjectOnlyWhenProjectIDSet(t *testing.T) {
	assert.Equal(t, ScopeDomain, Scope{DomainID: "acme"}.Kind())
	assert.Equal(t, ScopeProject, Scope{DomainID: "acme", ProjectID: "proj1"}.Kind())
}
