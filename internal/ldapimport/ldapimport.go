// Package ldapimport implements the LDAP Import Worker: directory binds and
// subtree searches run entirely off the request thread, reconciled against
// a domain's current users and applied through the Entity Store's normal
// update path.
package ldapimport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/cenkalti/backoff/v4"

	"github.com/ov-vocsdb/vocsdb/internal/dispatch"
	"github.com/ov-vocsdb/vocsdb/internal/domain"
	"github.com/ov-vocsdb/vocsdb/internal/event"
	"github.com/ov-vocsdb/vocsdb/internal/store"
)

// Dialer opens an LDAP v3 connection. Abstracted so tests can substitute a
// fake without a real directory server.
type Dialer func(ctx context.Context, host string) (Conn, error)

// Conn is the subset of *goldap.Conn the worker needs.
type Conn interface {
	Bind(username, password string) error
	Search(req *goldap.SearchRequest) (*goldap.SearchResult, error)
	Close() error
}

func dialGoLDAP(_ context.Context, host string) (Conn, error) {
	c, err := goldap.DialURL(host)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Worker implements dispatch.ImportWorker and the directory-bind path
// dispatch.LDAPAuthenticator needs for LDAP-backed login.
type Worker struct {
	store     *store.Store
	publisher event.Publisher
	dial      Dialer
	retry     backoff.BackOff
	logger    *slog.Logger

	// bindHost is the directory used to verify a user's own password during
	// login, distinct from the host an ldap_import request names explicitly.
	bindHost string
}

func New(s *store.Store, publisher event.Publisher, bindHost string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:     s,
		publisher: publisher,
		dial:      dialGoLDAP,
		retry:     backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2),
		logger:    logger,
		bindHost:  bindHost,
	}
}

// BindAsUser implements dispatch.LDAPAuthenticator: a user logs in by
// successfully binding to the directory as themselves.
func (w *Worker) BindAsUser(ctx context.Context, userID, password string) error {
	conn, err := w.dial(ctx, w.bindHost)
	if err != nil {
		return fmt.Errorf("ldap dial: %w", err)
	}
	defer conn.Close()
	return conn.Bind(userID, password)
}

// Import performs the full reconciliation described in §4.6: bind, subtree
// search for posixAccount entries, diff against the domain's current users,
// apply the reconciled set, and broadcast the diff.
func (w *Worker) Import(ctx context.Context, req dispatch.ImportRequest) error {
	var ldapUsers map[string]*domain.User
	op := func() error {
		conn, err := w.dial(ctx, req.Host)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.Bind(req.BindUser, req.BindPassword); err != nil {
			return backoff.Permanent(fmt.Errorf("ldap bind: %w", err))
		}

		search := goldap.NewSearchRequest(
			req.Base,
			goldap.ScopeWholeSubtree, goldap.NeverDerefAliases, 0, 0, false,
			"(objectClass=posixAccount)",
			[]string{"cn", "sn", "uid"},
			nil,
		)
		result, err := conn.Search(search)
		if err != nil {
			return err
		}

		ldapUsers = map[string]*domain.User{}
		for _, entry := range result.Entries {
			uid := entry.GetAttributeValue("uid")
			if uid == "" {
				continue
			}
			u := domain.NewUser(uid)
			u.LDAP = true
			u.Data = map[string]any{"name": entry.GetAttributeValue("cn")}
			ldapUsers[uid] = u
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(w.retry, ctx)); err != nil {
		return err
	}

	current, err := w.store.DomainUsers(req.DomainID)
	if err != nil {
		return err
	}

	add := domain.NewIDSet()
	del := domain.NewIDSet()
	next := map[string]*domain.User{}

	for uid, u := range ldapUsers {
		if existing, ok := current[uid]; ok {
			next[uid] = existing
			continue
		}
		add[uid] = struct{}{}
		next[uid] = u
	}
	for uid := range current {
		if _, ok := ldapUsers[uid]; !ok {
			del[uid] = struct{}{}
		}
	}

	if _, err := w.store.UpdateKey(domain.KindDomain, req.DomainID, "users", next); err != nil {
		return err
	}

	evt := domain.NewLDAPUpdateEvent(req.DomainID, add, del)
	if err := w.publisher.PublishLDAPUpdate(ctx, evt); err != nil {
		w.logger.Warn("failed to publish ldap_update", slog.String("domain", req.DomainID), slog.String("error", err.Error()))
	}
	return nil
}

// RetryTimeout bounds how long the exponential backoff may run in total,
// so a down directory doesn't hold the worker goroutine past the caller's
// own timeout.
func RetryTimeout(d time.Duration) backoff.BackOff {
	return backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), d)
}
