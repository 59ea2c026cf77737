// Package sipdiff computes the per-loop SIP-whitelist permit/revoke delta
// whenever a scope-level edit replaces a set of loops.
package sipdiff

import "github.com/ov-vocsdb/vocsdb/internal/domain"

// Diff computes, for every loop id present in either old or new, the
// permit/revoke delta described by the whitelist reconciliation algorithm:
//
//   - a loop present only in new emits permit = copy(new whitelist), no revoke.
//   - a loop present only in old is left alone here; wholesale loop removal
//     is handled by the store's delete cascade, not by this function.
//   - a loop present in both emits permit = new whitelist, revoke = every
//     old entry that does not literally equal any new entry (any-matches-any),
//     unless neither list holds an entry missing from the other, in which
//     case the loop is unchanged and emits nothing.
//
// Duplicate entries within a whitelist are preserved verbatim; this
// function never deduplicates.
func Diff(old, new map[string]*domain.Loop) map[string]domain.LoopDiff {
	out := map[string]domain.LoopDiff{}

	for id, newLoop := range new {
		oldLoop, existedBefore := old[id]
		newWhitelist := whitelistOf(newLoop)

		if !existedBefore {
			if len(newWhitelist) == 0 {
				continue
			}
			out[id] = domain.LoopDiff{Permit: cloneEntries(newWhitelist)}
			continue
		}

		oldWhitelist := whitelistOf(oldLoop)
		revoke := entriesNotIn(oldWhitelist, newWhitelist)
		if len(revoke) == 0 && len(entriesNotIn(newWhitelist, oldWhitelist)) == 0 {
			continue
		}
		out[id] = domain.LoopDiff{
			Permit: cloneEntries(newWhitelist),
			Revoke: revoke,
		}
	}

	return out
}

func whitelistOf(l *domain.Loop) []domain.SIPWhitelistEntry {
	if l == nil || l.SIP == nil {
		return nil
	}
	return l.SIP.Whitelist
}

func cloneEntries(in []domain.SIPWhitelistEntry) []domain.SIPWhitelistEntry {
	if len(in) == 0 {
		return nil
	}
	return append([]domain.SIPWhitelistEntry(nil), in...)
}

// entriesNotIn returns every entry of a that does not literally equal any
// entry of b (any-matches-any).
func entriesNotIn(a, b []domain.SIPWhitelistEntry) []domain.SIPWhitelistEntry {
	var out []domain.SIPWhitelistEntry
	for _, e := range a {
		if !containsEntry(b, e) {
			out = append(out, e)
		}
	}
	return out
}

func containsEntry(haystack []domain.SIPWhitelistEntry, needle domain.SIPWhitelistEntry) bool {
	for _, e := range haystack {
		if e.Equal(needle) {
			return true
		}
	}
	return false
}
