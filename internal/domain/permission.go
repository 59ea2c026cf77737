package domain

// Permission is the three-level access lattice granted by a role on a loop:
// NONE < RECV < SEND.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionRecv
	PermissionSend
)

func (p Permission) String() string {
	switch p {
	case PermissionRecv:
		return "recv"
	case PermissionSend:
		return "send"
	default:
		return "none"
	}
}

// PermissionFromString parses the internal string encoding; anything other
// than exactly "recv" or "send" is NONE.
func PermissionFromString(s string) Permission {
	switch s {
	case "recv":
		return PermissionRecv
	case "send":
		return PermissionSend
	default:
		return PermissionNone
	}
}

// PermissionFromWire decodes the boolean loop-role-permission encoding used
// on the request/response envelope: true denotes SEND, false denotes RECV,
// and a missing entry (represented here by ok=false) denotes NONE.
func PermissionFromWire(v bool, ok bool) Permission {
	if !ok {
		return PermissionNone
	}
	if v {
		return PermissionSend
	}
	return PermissionRecv
}

// Wire encodes a non-NONE permission as the boolean used on the envelope.
// Callers must omit the key entirely for NONE; ok reports whether the
// permission is representable (i.e. not NONE).
func (p Permission) Wire() (value bool, ok bool) {
	switch p {
	case PermissionSend:
		return true, true
	case PermissionRecv:
		return false, true
	default:
		return false, false
	}
}

// MarshalJSON renders a role-permission map entry using the wire boolean
// encoding (true=SEND, false=RECV). Callers must never store NONE as an
// explicit map entry; absence of the key already means NONE.
func (p Permission) MarshalJSON() ([]byte, error) {
	v, ok := p.Wire()
	if !ok {
		return []byte("false"), nil
	}
	if v {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// UnmarshalJSON decodes the wire boolean encoding: true=SEND, false=RECV.
func (p *Permission) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "true":
		*p = PermissionSend
	case "false":
		*p = PermissionRecv
	default:
		*p = PermissionNone
	}
	return nil
}

// Granted reports whether a reference permission satisfies a required check
// level, per the lattice reference >= check.
func Granted(reference, check Permission) bool {
	switch check {
	case PermissionNone:
		return true
	case PermissionRecv:
		return reference != PermissionNone
	case PermissionSend:
		return reference == PermissionSend
	default:
		return false
	}
}
