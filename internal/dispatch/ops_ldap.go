package dispatch

import (
	"context"
	"encoding/json"
)

type ldapImportParams struct {
	Host     string `json:"host"`
	Base     string `json:"base"`
	Domain   string `json:"domain"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// handleLDAPImport runs the reconciliation on its own goroutine, bounded by
// the configured LDAP timeout, and waits for it or for the caller's context
// to end, whichever comes first; the worker broadcasts its own ldap_update
// event on completion (§4.6). When the caller's context ends first the
// caller gets a timeout response, and the worker's later result is
// discarded without being logged.
func (d *Dispatcher) handleLDAPImport(ctx context.Context, conn *Connection, req Request) Response {
	if d.importer == nil {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "no LDAP import worker configured", nil)
	}
	var p ldapImportParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.Host == "" || p.Base == "" || p.Domain == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "host, base and domain are required", nil)
	}
	if err := d.requireAdminOfScope(conn, scopeOfDomain(p.Domain)); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}

	importReq := ImportRequest{
		Host: p.Host, Base: p.Base, DomainID: p.Domain,
		BindUser: p.User, BindPassword: p.Password,
	}
	done := make(chan error, 1)
	go func() {
		importCtx, cancel := context.WithTimeout(context.Background(), d.cfg.LDAPTimeout)
		defer cancel()
		done <- d.importer.Import(importCtx, importReq)
	}()

	select {
	case err := <-done:
		if err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
		return success(req.Event, req.UUID, map[string]bool{"ok": true})
	case <-ctx.Done():
		return failure(req.Event, req.UUID, ErrCodeTimeout, "ldap import timed out", nil)
	}
}
