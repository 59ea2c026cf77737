package dispatch

import "context"

// load and save require domain-admin somewhere (the external interface
// does not name a specific scope for them, since they act on the whole
// tree); being an admin of at least one domain is the closest fit.
func (d *Dispatcher) requireAnyDomainAdmin(conn *Connection) error {
	if conn == nil {
		return errNotLoggedIn
	}
	domains, err := d.authz.AdminDomains(conn.UserID)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return errNotAdminAnywhere
	}
	return nil
}

func (d *Dispatcher) handleLoad(ctx context.Context, conn *Connection, req Request) Response {
	if d.bridge == nil {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "no persistence backend configured", nil)
	}
	if err := d.requireAnyDomainAdmin(conn); err != nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, err.Error(), nil)
	}
	if err := d.bridge.Load(ctx); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleSave(ctx context.Context, conn *Connection, req Request) Response {
	if d.bridge == nil {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "no persistence backend configured", nil)
	}
	if err := d.requireAnyDomainAdmin(conn); err != nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, err.Error(), nil)
	}
	if err := d.bridge.Save(ctx); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}
