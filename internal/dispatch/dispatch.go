package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ov-vocsdb/vocsdb/internal/authz"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/event"
	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

// LDAPAuthenticator binds as a user against a directory to verify a
// password without consulting the local store. Implemented by
// internal/ldapimport for real deployments; dispatch only depends on this
// narrow interface to avoid pulling the LDAP client into every build.
type LDAPAuthenticator interface {
	BindAsUser(ctx context.Context, userID, password string) error
}

// ImportWorker runs the ldap_import reconciliation off the request thread.
type ImportWorker interface {
	Import(ctx context.Context, req ImportRequest) error
}

// ImportRequest carries the parameters of an ldap_import op through to the
// worker.
type ImportRequest struct {
	Host         string
	Base         string
	DomainID     string
	BindUser     string
	BindPassword string
}

// PersistenceBridge implements the load/save pair.
type PersistenceBridge interface {
	Save(ctx context.Context) error
	Load(ctx context.Context) error
}

// Config configures dispatcher behavior not already carried by its
// collaborators.
type Config struct {
	LDAPEnabled bool
	LDAPTimeout time.Duration
}

// Dispatcher is the single entry point transports call into: it owns
// connection/session lifecycle, authorization-by-scope, and the op routing
// table described in the external interface.
type Dispatcher struct {
	cfg Config

	store     *store.Store
	state     *stateplane.Plane
	authz     *authz.Engine
	sessions  *SessionStore
	conns     *connections
	publisher event.Publisher
	ldapAuth  LDAPAuthenticator
	importer  ImportWorker
	bridge    PersistenceBridge
	logger    *slog.Logger
}

func New(
	cfg Config,
	s *store.Store,
	plane *stateplane.Plane,
	az *authz.Engine,
	sm *SessionStore,
	publisher event.Publisher,
	ldapAuth LDAPAuthenticator,
	importer ImportWorker,
	bridge PersistenceBridge,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:       cfg,
		store:     s,
		state:     plane,
		authz:     az,
		sessions:  sm,
		conns:     newConnections(),
		publisher: publisher,
		ldapAuth:  ldapAuth,
		importer:  importer,
		bridge:    bridge,
		logger:    logger,
	}
}

// Disconnect tears down a connection's session when its transport closes,
// dropping any outstanding admin op association before it could have any
// further effect.
func (d *Dispatcher) Disconnect(connID string) {
	d.conns.delete(connID)
}

// Handle routes one parsed request envelope to its op handler and always
// returns a response envelope mirroring the request's uuid, never an error
// return value — every failure mode the external interface recognizes is
// expressed as an ErrorInfo inside the envelope.
func (d *Dispatcher) Handle(ctx context.Context, connID string, req Request) Response {
	conn, _ := d.conns.get(connID)

	switch req.Event {
	case "login":
		return d.handleLogin(ctx, connID, req)
	case "update_login":
		return d.handleUpdateLogin(ctx, connID, conn, req)
	case "logout":
		return d.handleLogout(connID, req)
	case "update_password":
		return d.handleUpdatePassword(conn, req)

	case "admin_domains":
		return d.handleAdminDomains(conn, req)
	case "admin_projects":
		return d.handleAdminProjects(conn, req)
	case "add_domain_admin":
		return d.handleAddDomainAdmin(conn, req)
	case "add_project_admin":
		return d.handleAddProjectAdmin(conn, req)

	case "check_id_exists":
		return d.handleCheckIDExists(req)
	case "get":
		return d.handleGet(conn, req)
	case "delete":
		return d.handleDelete(conn, req)
	case "create":
		return d.handleCreate(conn, req)
	case "get_key":
		return d.handleGetKey(conn, req)
	case "update_key":
		return d.handleUpdateKey(conn, req)
	case "delete_key":
		return d.handleDeleteKey(conn, req)
	case "verify":
		return d.handleVerify(conn, req)
	case "update":
		return d.handleUpdate(conn, req)

	case "load":
		return d.handleLoad(ctx, conn, req)
	case "save":
		return d.handleSave(ctx, conn, req)

	case "set_layout":
		return d.handleSetLayout(conn, req)
	case "get_layout":
		return d.handleGetLayout(req)
	case "set_keyset_layout":
		return d.handleSetKeysetLayout(conn, req)
	case "get_keyset_layout":
		return d.handleGetKeysetLayout(req)

	case "set_user_data":
		return d.handleSetUserData(conn, req)
	case "get_user_data":
		return d.handleGetUserData(req)

	case "ldap_import":
		return d.handleLDAPImport(ctx, conn, req)
	}

	return failure(req.Event, req.UUID, ErrCodeParameter, "unrecognized event", nil)
}

// requireAdminOfScope checks that the connection's user administers scope,
// degenerating to admin-of-self-or-parent for domain/project targets
// (IsAdminOfScope already implements the inheritance direction).
func (d *Dispatcher) requireAdminOfScope(conn *Connection, scope domain.Scope) error {
	if conn == nil {
		return domain.ErrUnauthorized
	}
	ok, err := d.authz.IsAdminOfScope(scope, conn.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func mapStoreError(err error) (ErrorCode, string) {
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return ErrCodeProcessing, "store lock acquisition timed out"
	case errors.Is(err, domain.ErrNotFound):
		return ErrCodeProcessing, err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		return ErrCodeProcessing, err.Error()
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		return ErrCodeAuth, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return ErrCodeParameter, err.Error()
	case errors.Is(err, domain.ErrReadOnlyAttribute):
		return ErrCodeParameter, err.Error()
	default:
		return ErrCodeProcessing, err.Error()
	}
}
