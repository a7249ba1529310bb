package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

// ReasonAccountBlocked is the close reason sent to a blocked user's live connection.
const ReasonAccountBlocked = "Account blocked"

// AdminService holds the admin and moderation operations. Role checks happen in the HTTP layer.
type AdminService struct {
	store    store.Store
	notifier Notifier
	logger   zerolog.Logger
}

func NewAdminService(s store.Store, n Notifier) *AdminService {
	return &AdminService{store: s, notifier: n, logger: logx.Component("admin")}
}

// ListUsers pages through all accounts.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*store.User, error) {
	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetRole changes the role of the account with the given email.
func (s *AdminService) SetRole(ctx context.Context, email string, role store.Role) (*store.User, error) {
	if !role.Valid() {
		return nil, errs.NewError(errs.ErrRoleInvalid)
	}

	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	u, err = s.store.SetRole(ctx, u.ID, role)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "set role")
	}

	s.logger.Info().Str("user_id", u.ID).Str("role", string(role)).Msg("Role changed")
	return u, nil
}

// SetBlocked blocks or unblocks userID. Blocking also ends the user's live connection.
// Nobody can block themselves and moderators cannot block admins.
func (s *AdminService) SetBlocked(ctx context.Context, actor *store.User, userID string, blocked bool) (*store.User, error) {
	if actor.ID == userID {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	target, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}
	if target.Role == store.RoleAdmin && actor.Role != store.RoleAdmin {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	u, err := s.store.SetBlocked(ctx, userID, blocked)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "set blocked")
	}

	if blocked {
		s.notifier.EvictUser(userID, ReasonAccountBlocked)
	}

	s.logger.Info().
		Str("actor_id", actor.ID).
		Str("user_id", userID).
		Bool("blocked", blocked).
		Msg("Block state changed")

	return u, nil
}

// DeleteMessage removes a message.
func (s *AdminService) DeleteMessage(ctx context.Context, messageID string) error {
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return mapNotFound(err, errs.ErrMessageNotFound, "delete message")
	}
	return nil
}
