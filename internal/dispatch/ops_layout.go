package dispatch

import "encoding/json"

type roleLayoutParams struct {
	Role   string         `json:"role"`
	Layout map[string]int `json:"layout"`
}

func (d *Dispatcher) handleSetLayout(conn *Connection, req Request) Response {
	var p roleLayoutParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.Role == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "role is required", nil)
	}
	scope, err := d.store.GetDomainOf(roleKind, p.Role)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.requireAdminOfScope(conn, scope); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.state.SetRoleLayout(p.Role, p.Layout); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleGetLayout(req Request) Response {
	var p roleLayoutParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	layout, err := d.state.GetRoleLayout(p.Role)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, layout)
}

type keysetLayoutParams struct {
	Domain string         `json:"domain"`
	Name   string         `json:"name"`
	Layout map[string]any `json:"layout"`
}

func (d *Dispatcher) handleSetKeysetLayout(conn *Connection, req Request) Response {
	var p keysetLayoutParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.Domain == "" || p.Name == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "domain and name are required", nil)
	}
	if err := d.requireAdminOfScope(conn, scopeOfDomain(p.Domain)); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.state.SetKeysetLayout(p.Domain, p.Name, p.Layout); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleGetKeysetLayout(req Request) Response {
	var p keysetLayoutParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	layout, err := d.state.GetKeysetLayout(p.Domain, p.Name)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, layout)
}

type userDataParams struct {
	User string         `json:"user"`
	Data map[string]any `json:"data"`
}

func (d *Dispatcher) handleSetUserData(conn *Connection, req Request) Response {
	var p userDataParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.User == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "user is required", nil)
	}
	if conn == nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
	}
	if p.User != conn.UserID {
		scope, err := d.store.GetDomainOf(userKind, p.User)
		if err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
		if err := d.requireAdminOfScope(conn, scope); err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
	}
	if err := d.state.SetUserData(p.User, p.Data); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleGetUserData(req Request) Response {
	var p userDataParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	data, err := d.state.GetUserData(p.User)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, data)
}
