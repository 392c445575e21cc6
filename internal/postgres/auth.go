package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/backend/internal/domain"
)

// UserBySessionToken resolves a bearer session token to its user.
// Expired sessions are indistinguishable from missing ones.
func (s *Store) UserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const q = `
		SELECT u.id, u.email, u.name
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`

	var u domain.User
	err := s.pool.QueryRow(ctx, q, token).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		return nil, notFoundOr(err, "store.user_by_session", "session not found")
	}
	return &u, nil
}

// MembershipByUser loads a user's membership record in an organization.
func (s *Store) MembershipByUser(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrganizationMember, error) {
	const q = `
		SELECT organization_id, user_id, role, status
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`

	var m domain.OrganizationMember
	err := s.pool.QueryRow(ctx, q, orgID, userID).Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.Status)
	if err != nil {
		return nil, notFoundOr(err, "store.membership_by_user", "membership not found")
	}
	return &m, nil
}
