package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// MembershipStore resolves a user's standing within an organization.
type MembershipStore interface {
	MembershipByUser(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrganizationMember, error)
}

// Authorizer gates organization-scoped purchases. The acting identity
// always comes from the session stored in the request context; any user
// id present in a request body is ignored.
type Authorizer struct {
	store MembershipStore
}

// NewAuthorizer creates an Authorizer backed by the given store.
func NewAuthorizer(store MembershipStore) *Authorizer {
	return &Authorizer{store: store}
}

// Actor returns the authenticated user from the request context.
func (a *Authorizer) Actor(ctx context.Context) (*domain.User, error) {
	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil, ErrSessionRequired
	}
	return user, nil
}

// RequireOrganizationAdmin verifies the session user holds an active
// administrative role in the organization. A valid session without the
// role fails Forbidden, never Unauthorized.
func (a *Authorizer) RequireOrganizationAdmin(ctx context.Context, orgID uuid.UUID) error {
	actor, err := a.Actor(ctx)
	if err != nil {
		return err
	}

	member, err := a.store.MembershipByUser(ctx, orgID, actor.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return ErrNotOrganizationMember
		}
		return err
	}

	if member.Status != "active" || !member.Role.IsAdministrative() {
		return ErrOrganizationAdminRequired
	}
	return nil
}
