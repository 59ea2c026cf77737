package sipdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

func loopWithWhitelist(id string, entries ...domain.SIPWhitelistEntry) *domain.Loop {
	l := domain.NewLoop(id)
	l.SIP = &domain.SIPConfig{Whitelist: entries}
	return l
}

func TestDiffNewLoopEmitsPermitOnly(t *testing.T) {
	entry := domain.SIPWhitelistEntry{Caller: "1000", Callee: "2000"}
	next := map[string]*domain.Loop{"a": loopWithWhitelist("a", entry)}

	out := Diff(nil, next)

	assert.Equal(t, []domain.SIPWhitelistEntry{entry}, out["a"].Permit)
	assert.Empty(t, out["a"].Revoke)
}

func TestDiffNewEmptyLoopEmitsNothing(t *testing.T) {
	next := map[string]*domain.Loop{"a": domain.NewLoop("a")}
	out := Diff(nil, next)
	assert.Empty(t, out)
}

func TestDiffRevokesEntriesDroppedFromWhitelist(t *testing.T) {
	keep := domain.SIPWhitelistEntry{Caller: "1000"}
	drop := domain.SIPWhitelistEntry{Caller: "2000"}
	old := map[string]*domain.Loop{"a": loopWithWhitelist("a", keep, drop)}
	next := map[string]*domain.Loop{"a": loopWithWhitelist("a", keep)}

	out := Diff(old, next)

	assert.Equal(t, []domain.SIPWhitelistEntry{keep}, out["a"].Permit)
	assert.Equal(t, []domain.SIPWhitelistEntry{drop}, out["a"].Revoke)
}

func TestDiffUnchangedLoopEmitsNoEntry(t *testing.T) {
	entry := domain.SIPWhitelistEntry{Caller: "1000"}
	old := map[string]*domain.Loop{"a": loopWithWhitelist("a", entry)}
	next := map[string]*domain.Loop{"a": loopWithWhitelist("a", entry)}

	out := Diff(old, next)

	assert.Empty(t, out)
}

func TestDiffLoopAbsentFromNewIsIgnored(t *testing.T) {
	old := map[string]*domain.Loop{"a": loopWithWhitelist("a", domain.SIPWhitelistEntry{Caller: "1"})}
	out := Diff(old, map[string]*domain.Loop{})
	assert.Empty(t, out)
}
