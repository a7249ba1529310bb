package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

// SearchLimit caps user search results.
const SearchLimit = 20

// ProfilePatch edits the caller's profile. Nil fields are left unchanged.
type ProfilePatch struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=50"`
	Status          *string `json:"status" validate:"omitempty,max=100"`
	Bio             *string `json:"bio" validate:"omitempty,max=500"`
	BackgroundColor *string `json:"backgroundColor" validate:"omitempty,max=32"`
	Banner          *string `json:"banner" validate:"omitempty,max=1024"`
}

// ProfileView is a user together with their unlocked achievements.
type ProfileView struct {
	*store.User
	Achievements []*store.UnlockedAchievement `json:"achievements"`
	IsFriend     bool                         `json:"isFriend"`
}

// UserService reads and edits user profiles.
type UserService struct {
	store        store.Store
	notifier     Notifier
	uploads      *UploadService
	achievements *AchievementService
	assetBaseURL string
	logger       zerolog.Logger
}

func NewUserService(s store.Store, n Notifier, uploads *UploadService, achievements *AchievementService, assetBaseURL string) *UserService {
	return &UserService{
		store:        s,
		notifier:     n,
		uploads:      uploads,
		achievements: achievements,
		assetBaseURL: assetBaseURL,
		logger:       logx.Component("users"),
	}
}

// Profile returns userID's profile as seen by viewerID. Email is only shown to its owner.
func (s *UserService) Profile(ctx context.Context, viewerID, userID string) (*ProfileView, error) {
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	unlocked, err := s.store.UserAchievements(ctx, userID, DefaultUserAchievementsLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("user achievements: %w", err)
	}

	view := &ProfileView{User: u, Achievements: unlocked}

	if viewerID != userID {
		u.Email = ""
		view.IsFriend, err = s.store.AreFriends(ctx, viewerID, userID)
		if err != nil {
			return nil, fmt.Errorf("are friends: %w", err)
		}
	}

	return view, nil
}

// Search finds users by display name, excluding the caller.
func (s *UserService) Search(ctx context.Context, callerID, query string) ([]realtime.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []realtime.UserSummary{}, nil
	}

	users, err := s.store.SearchUsers(ctx, query, callerID, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return summaries(users), nil
}

// UpdateProfile applies p to the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p ProfilePatch) (*store.User, error) {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		if trimmed == "" {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		p.Name = &trimmed
	}

	u, err := s.store.UpdateProfile(ctx, userID, store.ProfileUpdate{
		Name:            p.Name,
		Status:          p.Status,
		Bio:             p.Bio,
		BackgroundColor: p.BackgroundColor,
		Banner:          p.Banner,
	})
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "update profile")
	}
	return u, nil
}

// PresignAvatar issues an upload slot under the caller's avatar prefix.
func (s *UserService) PresignAvatar(ctx context.Context, userID string, in UploadRequest) (*UploadTicket, error) {
	return s.uploads.Presign(ctx, storage.AvatarScope(userID), in, true)
}

// CommitAvatar makes an uploaded object the caller's avatar and tells every connection.
func (s *UserService) CommitAvatar(ctx context.Context, userID, key string) (*store.User, error) {
	if err := s.uploads.Verify(ctx, key, storage.AvatarScope(userID), true); err != nil {
		return nil, err
	}

	prev, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	avatar := storage.PublicURL(s.assetBaseURL, key)
	u, err := s.store.SetAvatar(ctx, userID, avatar)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "set avatar")
	}

	s.notifier.BroadcastAll(realtime.AvatarUpdated(userID, avatar))

	if oldKey := storage.KeyFromPublicURL(s.assetBaseURL, prev.Avatar); oldKey != "" && oldKey != key &&
		storage.KeyInScope(oldKey, storage.AvatarScope(userID)) {
		s.uploads.Discard(ctx, oldKey)
	}

	s.achievements.Award(ctx, userID, AchievementPersonalizer)

	return u, nil
}
