package dispatch

import (
	"context"
	"encoding/json"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

func parseKind(raw string, req Request) (domain.Kind, *Response) {
	kind, ok := domain.KindFromString(raw)
	if !ok {
		r := failure(req.Event, req.UUID, ErrCodeParameter, "unknown entity type "+raw, nil)
		return 0, &r
	}
	return kind, nil
}

type scopeParam struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (sp scopeParam) toScopeKind() (domain.ScopeKind, bool) {
	switch sp.Kind {
	case "domain":
		return domain.ScopeDomain, true
	case "project":
		return domain.ScopeProject, true
	default:
		return 0, false
	}
}

type checkIDExistsParams struct {
	ID    string      `json:"id"`
	Scope *scopeParam `json:"scope"`
}

func (d *Dispatcher) handleCheckIDExists(req Request) Response {
	var p checkIDExistsParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	if p.ID == "" {
		return failure(req.Event, req.UUID, ErrCodeParameter, "id is required", nil)
	}
	var scope *domain.Scope
	if p.Scope != nil {
		if p.Scope.Kind == "project" {
			scope = &domain.Scope{ProjectID: p.Scope.ID}
		} else {
			scope = &domain.Scope{DomainID: p.Scope.ID}
		}
	}
	return success(req.Event, req.UUID, map[string]bool{"exists": d.store.CheckIDExists(p.ID, scope)})
}

type typeIDParams struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (d *Dispatcher) handleGet(conn *Connection, req Request) Response {
	var p typeIDParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	entity, err := d.store.Get(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, entity)
}

func (d *Dispatcher) handleDelete(conn *Connection, req Request) Response {
	var p typeIDParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	scope, err := d.store.GetDomainOf(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.requireAdminOfScope(conn, scope); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	result, err := d.store.Delete(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.publishChange(kind, p.ID, scope, result)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

type createParams struct {
	Type  string     `json:"type"`
	ID    string     `json:"id"`
	Scope scopeParam `json:"scope"`
}

func (d *Dispatcher) handleCreate(conn *Connection, req Request) Response {
	var p createParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	scopeKind, ok := p.Scope.toScopeKind()
	if !ok && kind != domain.KindDomain {
		return failure(req.Event, req.UUID, ErrCodeParameter, "scope.kind must be domain or project", nil)
	}
	authScope := domain.Scope{DomainID: p.Scope.ID}
	if scopeKind == domain.ScopeProject {
		resolved, err := d.store.GetDomainOf(domain.KindProject, p.Scope.ID)
		if err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
		authScope = resolved
	}
	if kind != domain.KindDomain {
		if err := d.requireAdminOfScope(conn, authScope); err != nil {
			code, msg := mapStoreError(err)
			return failure(req.Event, req.UUID, code, msg, nil)
		}
	} else if conn == nil {
		return failure(req.Event, req.UUID, ErrCodeAuth, "not logged in", nil)
	}
	if err := d.store.Create(kind, p.ID, scopeKind, p.Scope.ID); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.publishChange(kind, p.ID, authScope, nil)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

type keyParams struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

func (d *Dispatcher) handleGetKey(conn *Connection, req Request) Response {
	var p keyParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	value, err := d.store.GetKey(kind, p.ID, p.Key)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	return success(req.Event, req.UUID, value)
}

func (d *Dispatcher) handleUpdateKey(conn *Connection, req Request) Response {
	var p keyParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	scope, err := d.store.GetDomainOf(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.requireAdminOfScope(conn, scope); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	var value any
	if len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, &value); err != nil {
			return failure(req.Event, req.UUID, ErrCodeParameter, "malformed data", nil)
		}
	}
	result, err := d.store.UpdateKey(kind, p.ID, p.Key, value)
	if verrs, ok := asValidationErrors(err); ok {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "integrity violation", verrs.Map())
	}
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.publishChange(kind, p.ID, scope, result)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleDeleteKey(conn *Connection, req Request) Response {
	var p keyParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	scope, err := d.store.GetDomainOf(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.requireAdminOfScope(conn, scope); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.store.DeleteKey(kind, p.ID, p.Key); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	d.publishChange(kind, p.ID, scope, nil)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

type bulkParams struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

func (d *Dispatcher) handleVerify(conn *Connection, req Request) Response {
	var p bulkParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	errs, err := d.store.VerifyItem(kind, p.ID, p.Data)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if len(errs) > 0 {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "integrity violation", errs.Map())
	}
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func (d *Dispatcher) handleUpdate(conn *Connection, req Request) Response {
	var p bulkParams
	if err := json.Unmarshal(req.Parameter, &p); err != nil {
		return failure(req.Event, req.UUID, ErrCodeParameter, "malformed parameter", nil)
	}
	kind, errResp := parseKind(p.Type, req)
	if errResp != nil {
		return *errResp
	}
	scope, err := d.store.GetDomainOf(kind, p.ID)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if err := d.requireAdminOfScope(conn, scope); err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	result, errs, err := d.store.UpdateItem(kind, p.ID, p.Data)
	if err != nil {
		code, msg := mapStoreError(err)
		return failure(req.Event, req.UUID, code, msg, nil)
	}
	if len(errs) > 0 {
		return failure(req.Event, req.UUID, ErrCodeProcessing, "integrity violation", errs.Map())
	}
	d.publishChange(kind, p.ID, scope, result)
	return success(req.Event, req.UUID, map[string]bool{"ok": true})
}

func asValidationErrors(err error) (domain.ValidationErrors, bool) {
	verrs, ok := err.(domain.ValidationErrors)
	return verrs, ok
}

// publishChange emits an update_db event once a mutation has committed and
// the store's lock has already been released.
func (d *Dispatcher) publishChange(kind domain.Kind, id string, scope domain.Scope, result *store.MutationResult) {
	var processing map[string]domain.LoopDiff
	if result != nil {
		processing = result.LoopDiffs
	}
	evt := domain.NewUpdateDBEvent(kind, id, scope, processing)
	_ = d.publisher.PublishChange(context.Background(), evt)
}
