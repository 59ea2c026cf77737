package domain

import (
	"encoding/json"
	"time"
)

// Event types carried on the change-notification channel. Subscribers must
// treat delivery as best-effort and handle both idempotently.
const (
	EventUpdateDB   = "update_db"
	EventLDAPUpdate = "ldap_update"
)

// LoopDiff is the permit/revoke delta for one loop, attached to an
// update_db event's "processing" field whenever a mutation changed a loop's
// SIP whitelist.
type LoopDiff struct {
	Permit []SIPWhitelistEntry `json:"permit,omitempty"`
	Revoke []SIPWhitelistEntry `json:"revoke,omitempty"`
}

// ChangeEvent is emitted after a mutation commits and the store's lock has
// been released, never while it is held.
type ChangeEvent struct {
	Type      string              `json:"event"`
	Timestamp time.Time           `json:"-"`
	Kind      Kind                `json:"-"`
	ID        string              `json:"-"`
	Scope     Scope               `json:"-"`
	Processing map[string]LoopDiff `json:"processing,omitempty"`
}

func NewUpdateDBEvent(kind Kind, id string, scope Scope, processing map[string]LoopDiff) ChangeEvent {
	return ChangeEvent{
		Type:       EventUpdateDB,
		Timestamp:  time.Now(),
		Kind:       kind,
		ID:         id,
		Scope:      scope,
		Processing: processing,
	}
}

// IDSet is a set of ids that marshals each member as a JSON null, matching
// the original's ov_json_object_set(item, user_id, ov_json_null())
// encoding: {"u4": null}, not the full entity.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s))
	for id := range s {
		out[id] = json.RawMessage("null")
	}
	return json.Marshal(out)
}

// LDAPUpdateEvent is the diff broadcast after an LDAP import reconciles a
// domain's users against a directory search. Add/Delete carry only ids (as
// JSON null values), never the user objects, so a stored password hash
// never crosses the broadcast boundary (I5).
type LDAPUpdateEvent struct {
	Type      string    `json:"event"`
	DomainID  string    `json:"domain"`
	Add       IDSet     `json:"add"`
	Delete    IDSet     `json:"delete"`
	Timestamp time.Time `json:"-"`
}

func NewLDAPUpdateEvent(domainID string, add, del IDSet) LDAPUpdateEvent {
	return LDAPUpdateEvent{
		Type:      EventLDAPUpdate,
		DomainID:  domainID,
		Add:       add,
		Delete:    del,
		Timestamp: time.Now(),
	}
}
