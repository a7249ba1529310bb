package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/randx"
)

// Built-in achievements awarded by the services themselves.
const (
	AchievementFirstStep    = "First Step"
	AchievementSocial       = "Social"
	AchievementCommunicator = "Communicator"
	AchievementPersonalizer = "Personalizer"
)

// DefaultUserAchievementsLimit is the page size of a user's achievement list.
const DefaultUserAchievementsLimit = 50

// AchievementInput creates a catalog entry.
type AchievementInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Image       string `json:"image" validate:"max=1024"`
	Type        string `json:"type" validate:"omitempty,oneof=achievement badge"`
}

// AchievementPatch edits a catalog entry. Nil fields are left unchanged.
type AchievementPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Image       *string `json:"image" validate:"omitempty,max=1024"`
	Type        *string `json:"type" validate:"omitempty,oneof=achievement badge"`
	Active      *bool   `json:"active"`
}

// AchievementService manages the catalog and per-user unlocks.
type AchievementService struct {
	store    store.Store
	notifier Notifier
	uploads  *UploadService
	now      func() time.Time
	logger   zerolog.Logger
}

func NewAchievementService(s store.Store, n Notifier, uploads *UploadService, now func() time.Time) *AchievementService {
	return &AchievementService{
		store:    s,
		notifier: n,
		uploads:  uploads,
		now:      now,
		logger:   logx.Component("achievements"),
	}
}

// Catalog lists the active achievements.
func (s *AchievementService) Catalog(ctx context.Context) ([]*store.Achievement, error) {
	list, err := s.store.ListAchievements(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return list, nil
}

// ForUser lists a user's unlocks, newest first.
func (s *AchievementService) ForUser(ctx context.Context, userID string, limit, offset int) ([]*store.UnlockedAchievement, error) {
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	list, err := s.store.UserAchievements(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("user achievements: %w", err)
	}
	return list, nil
}

// Assign unlocks the named achievement for userID and notifies the user on first unlock.
// Assigning an already held achievement returns the original unlock with created=false.
func (s *AchievementService) Assign(ctx context.Context, userID, name string) (*store.UnlockedAchievement, bool, error) {
	a, err := s.store.FindAchievementByName(ctx, name)
	if err != nil {
		return nil, false, mapNotFound(err, errs.ErrAchievementNotFound, "find achievement")
	}

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return nil, false, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	return s.assign(ctx, userID, a)
}

func (s *AchievementService) assign(ctx context.Context, userID string, a *store.Achievement) (*store.UnlockedAchievement, bool, error) {
	at, created, err := s.store.AssignAchievement(ctx, userID, a.ID, s.now().UTC())
	if err != nil {
		return nil, false, mapNotFound(err, errs.ErrUserNotFound, "assign achievement")
	}

	if created {
		s.notifier.SendToUser(userID, realtime.AchievementUnlocked(achievementNotice(a, &at)))
		s.logger.Info().Str("user_id", userID).Str("achievement", a.Name).Msg("Achievement unlocked")
	}

	return &store.UnlockedAchievement{Achievement: *a, UnlockedAt: at}, created, nil
}

// Revoke removes the named achievement from userID.
func (s *AchievementService) Revoke(ctx context.Context, userID, name string) error {
	a, err := s.store.FindAchievementByName(ctx, name)
	if err != nil {
		return mapNotFound(err, errs.ErrAchievementNotFound, "find achievement")
	}

	if err := s.store.RevokeAchievement(ctx, userID, a.ID); err != nil {
		return mapNotFound(err, errs.ErrAchievementNotAssigned, "revoke achievement")
	}

	s.notifier.SendToUser(userID, realtime.AchievementRevoked(achievementNotice(a, nil)))
	return nil
}

// Create adds a catalog entry and unlocks it for its creator.
func (s *AchievementService) Create(ctx context.Context, creatorID string, in AchievementInput) (*store.Achievement, error) {
	typ := store.TypeAchievement
	if in.Type != "" {
		typ = store.AchievementType(in.Type)
	}

	a := &store.Achievement{
		ID:          randx.ID(),
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Type:        typ,
		Level:       1,
		Active:      true,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.CreateAchievement(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, errs.NewError(errs.ErrAchievementExists)
		}
		return nil, fmt.Errorf("create achievement: %w", err)
	}

	if _, _, err := s.assign(ctx, creatorID, a); err != nil {
		return nil, err
	}

	return a, nil
}

// Update edits a catalog entry.
func (s *AchievementService) Update(ctx context.Context, id string, p AchievementPatch) (*store.Achievement, error) {
	upd := store.AchievementUpdate{
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Active:      p.Active,
	}
	if p.Type != nil {
		t := store.AchievementType(*p.Type)
		upd.Type = &t
	}

	a, err := s.store.UpdateAchievement(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, errs.NewError(errs.ErrAchievementExists)
		}
		return nil, mapNotFound(err, errs.ErrAchievementNotFound, "update achievement")
	}
	return a, nil
}

// Delete removes a catalog entry nobody holds.
func (s *AchievementService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAchievement(ctx, id); err != nil {
		if errors.Is(err, store.ErrInUse) {
			return errs.NewError(errs.ErrAchievementInUse)
		}
		return mapNotFound(err, errs.ErrAchievementNotFound, "delete achievement")
	}
	return nil
}

// PresignImage issues an upload slot for achievement art.
func (s *AchievementService) PresignImage(ctx context.Context, in UploadRequest) (*UploadTicket, error) {
	return s.uploads.Presign(ctx, storage.AchievementScope, in, true)
}

// Award unlocks a built-in achievement as a side effect of another mutation.
// The triggering mutation is already committed, so failures are logged and swallowed.
func (s *AchievementService) Award(ctx context.Context, userID, name string) {
	a, err := s.store.FindAchievementByName(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("achievement", name).Msg("Failed to look up built-in achievement")
		}
		return
	}
	if !a.Active {
		return
	}

	if _, _, err := s.assign(ctx, userID, a); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("achievement", name).Msg("Failed to award achievement")
	}
}
