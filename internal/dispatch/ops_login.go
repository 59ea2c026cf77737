package dispatch

import (
	"context"
	"encoding/json"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

type loginParams struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Session  string `json:"session"`
	Domain   string `json:"domain"`
}

type loginResult struct {
	Session string `json:"session"`
}

func (d *Dispatcher) handleLogin(ctx context.Context, connID string, req Request) Response {
	var p loginParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}

	if p.Session != "" && p.User != "" {
		claims, err := d.sessions.validate(p.Session)
		if err == nil && claims.UserID == p.User {
			if d.store.Authenticate(p.User, p.Password) {
				d.conns.set(connID, &Connection{
					UserID: p.User, ClientID: claims.ClientID,
					DomainID: claims.DomainID, SessionID: p.Session,
				})
				return success(req.Event, req.UUID, loginResult{Session: p.Session})
			}
			return failure(req.Event, req.UUID, ErrCodeAuth, "invalid credentials", nil)
		}
	}

	if p.User == "" || p.Password == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "user and password are required", nil)
	}

	if d.cfg.LDAPEnabled && d.ldapAuth != nil {
		bindCtx, cancel := context.WithTimeout(ctx, d.cfg.LDAPTimeout)
		defer cancel()
		if err := d.ldapAuth.BindAsUser(bindCtx, p.User, p.Password); err != nil {
			if bindCtx.Err() != nil {
				return failure(req.Event, req.UUID, ErrCodeTimeout, "ldap bind timed out", nil)
			}
			return failure(req.Event, req.UUID, ErrCodeAuth, "ldap authentication rejected", nil)
		}
	} else if !d.store.Authenticate(p.User, p.Password) {
		return failure(req.Event, req.UUID, ErrCodeAuth, "invalid credentials", nil)
	}

	sessionID, err := d.sessions.issue(p.User, req.Client, p.Domain)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.conns.set(connID, &Connection{UserID: p.User, ClientID: req.Client, DomainID: p.Domain, SessionID: sessionID})
	return success(req.Event, req.UUID, loginResult{Session: sessionID})
}

type updateLoginParams struct {
	User    string `json:"user"`
	Session string `json:"session"`
}

func (d *Dispatcher) handleUpdateLogin(ctx context.Context, connID string, conn *Connection, req Request) Response {
	var p updateLoginParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	claims, err := d.sessions.validate(p.Session)
	if err != nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "invalid session", nil)
	}
	if p.User != "" && claims.UserID != p.User {
		return failure(req.Event, req.UUID, ErrCodeAuth, "session does not belong to user", nil)
	}
	newSession, err := d.sessions.rebind(claims)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.conns.set(connID, &Connection{
		UserID: claims.UserID, ClientID: req.Client,
		DomainID: claims.DomainID, SessionID: newSession,
	})
	return success(req.Event, req.UUID, loginResult{Session: newSession})
}

func (d *Dispatcher) handleLogout(connID string, req Request) Response {
	d.conns.delete(connID)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

type updatePasswordParams struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (d *Dispatcher) handleUpdatePassword(conn *Connection, req Request) Response {
	if conn == nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
	}
	if d.cfg.LDAPEnabled {
		return failure(req.Event, req.UUID, ErrCodeAuth, "password changes are managed by the LDAP directory", nil)
	}
	var p updatePasswordParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.User == "" || p.Password == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "user and password are required", nil)
	}
	if p.User != conn.UserID {
		scope, err := d.store.GetDomainOf(domain.KindUser, p.User)
		if err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
		if err := d.requireAdminOfScope(conn, scope); err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
	}
	if err := d.store.SetPassword(p.User, p.Password); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}
