package dispatch

import (
	"errors"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

const (
	roleKind = domain.KindRole
	userKind = domain.KindUser
)

var (
	errNotLoggedIn      = errors.New("not logged in")
	errNotAdminAnywhere = errors.New("caller is not a domain admin of any domain")
)

func scopeOfDomain(domainID string) domain.Scope {
	return domain.Scope{DomainID: domainID}
}
