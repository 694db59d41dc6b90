package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

type organizationIdentity struct {
	ID       uuid.UUID
	JoinCode string
}

// newOrganizationIdentity mints the join code handed to staff who want
// to join a tenant, and derives the organization id from it.
func newOrganizationIdentity() (organizationIdentity, error) {
	code := ulid.Make().String()
	id, err := hashid.NewUUID(code)
	if err != nil {
		return organizationIdentity{}, errors.Wrap(err, errors.CategoryInternal, "failed to derive organization id")
	}
	return organizationIdentity{ID: id, JoinCode: code}, nil
}

// NormalizeJoinCode trims and upper cases a join code
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// resolveOrganizationCode finds the organization a registrant wants to
// join. The code may be the join code or the organization id. Anything
// that does not resolve is ErrInvalidOrganization.
func resolveOrganizationCode(ctx context.Context, orgs Organizations, tx bun.IDB, code string) (*Organization, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidOrganization
	}

	var (
		org *Organization
		err error
	)
	if id, perr := uuid.Parse(code); perr == nil {
		org, err = orgs.FindByIDTx(ctx, tx, id)
	} else {
		org, err = orgs.FindByJoinCodeTx(ctx, tx, NormalizeJoinCode(code))
	}

	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidOrganization
		}
		return nil, err
	}
	return org, nil
}
