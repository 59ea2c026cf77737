package dispatch

import "encoding/json"

type adminQueryParams struct {
	User string `json:"user"`
}

func (d *Dispatcher) handleAdminDomains(conn *Connection, req Request) Response {
	userID, errResp := d.resolveQueryUser(conn, req)
	if errResp != nil {
		return *errResp
	}
	domains, err := d.authz.AdminDomains(userID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, domains)
}

func (d *Dispatcher) handleAdminProjects(conn *Connection, req Request) Response {
	userID, errResp := d.resolveQueryUser(conn, req)
	if errResp != nil {
		return *errResp
	}
	projects, err := d.authz.AdminProjects(userID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, projects)
}

// resolveQueryUser decodes the optional "user" parameter, defaulting to the
// caller, and requires a logged-in connection.
func (d *Dispatcher) resolveQueryUser(conn *Connection, req Request) (string, *Response) {
	if conn == nil {
		r := failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
		return "", &r
	}
	var p adminQueryParams
	if len(req.Parameter) > 0 {
		if err := json.Unmarshal(req.Parameter, &p); err != nil {
			r := failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
			return "", &r
		}
	}
	if p.User == "" {
		return conn.UserID, nil
	}
	return p.User, nil
}

type grantAdminParams struct {
	Domain  string `json:"domain"`
	Project string `json:"project"`
	User    string `json:"user"`
}

func (d *Dispatcher) handleAddDomainAdmin(conn *Connection, req Request) Response {
	if conn == nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
	}
	var p grantAdminParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.Domain == "" || p.User == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "domain and user are required", nil)
	}
	ok, err := d.authz.IsDomainAdminByID(p.Domain, conn.UserID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if !ok {
		return failure(req.Event, req.UUID, ErrCodeAuth, "caller is not a domain admin", nil)
	}
	if err := d.authz.GrantDomainAdmin(p.Domain, p.User); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleAddProjectAdmin(conn *Connection, req Request) Response {
	if conn == nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
	}
	var p grantAdminParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.Project == "" || p.User == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "project and user are required", nil)
	}
	ok, err := d.authz.IsProjectAdminByID(p.Project, conn.UserID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if !ok {
		return failure(req.Event, req.UUID, ErrCodeAuth, "caller is not a project admin", nil)
	}
	if err := d.authz.GrantProjectAdmin(p.Project, p.User); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}
