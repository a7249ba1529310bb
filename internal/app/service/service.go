/*
Package service implements the messenger's domain operations.

Every mutation follows the same two steps: commit to the store, then hand an event to the
Notifier. A store failure returns before anything is dispatched; a delivery miss (target offline)
never undoes the commit.
*/
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
)

// Notifier delivers events to live connections. *realtime.Dispatcher implements it.
type Notifier interface {
	SendToUser(userID string, evt *realtime.Event) bool
	SendToUsers(userIDs []string, evt *realtime.Event, exclude ...string) int
	BroadcastAll(evt *realtime.Event) int
	EvictUser(userID, reason string) bool
}

var _ Notifier = (*realtime.Dispatcher)(nil)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    store.Store
	Notifier Notifier

	// Storage is nil when no bucket is configured.
	Storage storage.StorageService

	JWTSecret    string
	AssetBaseURL string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Services bundles the domain services.
type Services struct {
	Auth         *AuthService
	Users        *UserService
	Friends      *FriendService
	Chats        *ChatService
	Achievements *AchievementService
	Admin        *AdminService
	Uploads      *UploadService
}

// New wires all services over one set of dependencies.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}

	uploads := NewUploadService(d.Storage)
	achievements := NewAchievementService(d.Store, d.Notifier, uploads, d.Now)

	return &Services{
		Auth:         NewAuthService(d.Store, achievements, d.JWTSecret, d.Now),
		Users:        NewUserService(d.Store, d.Notifier, uploads, achievements, d.AssetBaseURL),
		Friends:      NewFriendService(d.Store, d.Notifier, achievements, d.Now),
		Chats:        NewChatService(d.Store, d.Notifier, uploads, achievements, d.Now),
		Achievements: achievements,
		Admin:        NewAdminService(d.Store, d.Notifier),
		Uploads:      uploads,
	}
}

// mapNotFound turns store.ErrNotFound into the given business error and wraps anything else.
func mapNotFound(err error, code int, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(code)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UserSummary builds the event/user-list projection of u.
func UserSummary(u *store.User) realtime.UserSummary {
	return realtime.UserSummary{ID: u.ID, Name: u.DisplayName(), Avatar: u.Avatar}
}

func summaries(users []*store.User) []realtime.UserSummary {
	return lo.Map(users, func(u *store.User, _ int) realtime.UserSummary { return UserSummary(u) })
}

func usersByID(users []*store.User) map[string]*store.User {
	return lo.SliceToMap(users, func(u *store.User) (string, *store.User) { return u.ID, u })
}

func achievementNotice(a *store.Achievement, at *time.Time) realtime.AchievementNotice {
	return realtime.AchievementNotice{
		Name:        a.Name,
		Description: a.Description,
		Image:       a.Image,
		Type:        string(a.Type),
		UnlockedAt:  at,
	}
}
