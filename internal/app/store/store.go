/*
Package store declares the durable entities of the messenger and the persistence
contracts the services depend on.

Every mutation method is durable by the time it returns; callers notify live
connections only afterwards. Two implementations exist: the Postgres store in
internal/app/db and the in-process store in internal/app/store/memory.
*/
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the addressed row does not exist
	// (or, for conditional mutations, is not in the expected state).
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a uniqueness rule would be violated.
	ErrConflict = errors.New("store: conflict")

	// ErrInUse is returned when a row cannot be deleted while referenced.
	ErrInUse = errors.New("store: in use")
)

// Role is the account role.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether r may block users and delete messages.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// DefaultStatus is the profile status of a fresh account.
const DefaultStatus = "Available"

// Stats holds the per-user counters.
type Stats struct {
	MessageCount     int `json:"messageCount"`
	FriendCount      int `json:"friendCount"`
	AchievementCount int `json:"achievementCount"`
	Level            int `json:"level"`
}

// Profile holds the user-editable presentation fields.
type Profile struct {
	Status          string `json:"status"`
	Bio             string `json:"bio"`
	BackgroundColor string `json:"backgroundColor"`
	Banner          string `json:"banner"`
}

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Avatar       string     `json:"avatar"`
	Role         Role       `json:"role"`
	Blocked      bool       `json:"blocked"`
	Profile      Profile    `json:"profile"`
	Stats        Stats      `json:"stats"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DisplayName returns the name shown to other users.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// ProfileUpdate carries the optional fields of a profile edit. Nil means unchanged.
type ProfileUpdate struct {
	Name            *string
	Status          *string
	Bio             *string
	BackgroundColor *string
	Banner          *string
}

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a directed request from one user to another.
type FriendRequest struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"fromUserId"`
	ToUserID   string              `json:"toUserId"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// ChatType distinguishes one-to-one chats from groups.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
)

// Valid reports whether t is a known chat type.
func (t ChatType) Valid() bool {
	return t == ChatPrivate || t == ChatGroup
}

// Chat is a conversation between participants.
type Chat struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          ChatType  `json:"type"`
	Description   string    `json:"description"`
	Avatar        string    `json:"avatar"`
	CreatedBy     string    `json:"createdBy"`
	Participants  []string  `json:"participants"`
	MessageCount  int       `json:"messageCount"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a persisted chat message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Files     []string  `json:"files"`
	Sticker   string    `json:"sticker,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AchievementType distinguishes achievements from badges.
type AchievementType string

const (
	TypeAchievement AchievementType = "achievement"
	TypeBadge       AchievementType = "badge"
)

// Achievement is a catalog entry.
type Achievement struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Type        AchievementType `json:"type"`
	Level       int             `json:"level"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// AchievementUpdate carries the optional fields of an achievement edit.
type AchievementUpdate struct {
	Name        *string
	Description *string
	Image       *string
	Type        *AchievementType
	Active      *bool
}

// UnlockedAchievement is an achievement held by a user.
type UnlockedAchievement struct {
	Achievement
	UnlockedAt time.Time `json:"unlockedAt"`
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts u. Duplicate username or email yields ErrConflict.
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
	// SearchUsers matches display names case-insensitively, excluding excludeID.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	SetAvatar(ctx context.Context, id, avatar string) (*User, error)
	SetRole(ctx context.Context, id string, role Role) (*User, error)
	SetBlocked(ctx context.Context, id string, blocked bool) (*User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// FriendStore persists friend requests and friendships.
type FriendStore interface {
	// CreateFriendRequest records a pending request. A pending request between the
	// pair in either direction yields ErrConflict.
	CreateFriendRequest(ctx context.Context, req *FriendRequest) error
	FindFriendRequest(ctx context.Context, id string) (*FriendRequest, error)
	PendingRequestsFor(ctx context.Context, userID string) ([]*FriendRequest, error)
	// AcceptFriendRequest marks a pending request addressed to accepterID as accepted,
	// records the friendship and bumps both friend counters in one step.
	AcceptFriendRequest(ctx context.Context, requestID, accepterID string) (*FriendRequest, error)
	// RejectFriendRequest marks a pending request addressed to rejecterID as rejected.
	RejectFriendRequest(ctx context.Context, requestID, rejecterID string) (*FriendRequest, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
	// RemoveFriendship deletes the friendship and decrements both counters. ErrNotFound if absent.
	RemoveFriendship(ctx context.Context, a, b string) error
	ListFriends(ctx context.Context, userID string) ([]*User, error)
}

// ChatStore persists chats and messages.
type ChatStore interface {
	// CreateChat inserts c. A second private chat for the same pair yields ErrConflict.
	CreateChat(ctx context.Context, c *Chat) error
	FindChat(ctx context.Context, id string) (*Chat, error)
	FindPrivateChat(ctx context.Context, a, b string) (*Chat, error)
	ChatsForUser(ctx context.Context, userID string) ([]*Chat, error)
	ChatParticipants(ctx context.Context, chatID string) ([]string, error)
	// CreateMessage inserts m and bumps the chat and sender counters in one step.
	CreateMessage(ctx context.Context, m *Message) error
	FindMessage(ctx context.Context, id string) (*Message, error)
	// ListMessages returns messages newest first.
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// AchievementStore persists the catalog and the per-user unlocks.
type AchievementStore interface {
	ListAchievements(ctx context.Context, activeOnly bool) ([]*Achievement, error)
	FindAchievement(ctx context.Context, id string) (*Achievement, error)
	FindAchievementByName(ctx context.Context, name string) (*Achievement, error)
	// CreateAchievement inserts a. Duplicate names yield ErrConflict.
	CreateAchievement(ctx context.Context, a *Achievement) error
	UpdateAchievement(ctx context.Context, id string, upd AchievementUpdate) (*Achievement, error)
	// DeleteAchievement refuses with ErrInUse while any user holds the achievement.
	DeleteAchievement(ctx context.Context, id string) error
	// AssignAchievement unlocks the achievement for the user. It is idempotent:
	// created is false and unlockedAt is the original time when already held.
	AssignAchievement(ctx context.Context, userID, achievementID string, at time.Time) (unlockedAt time.Time, created bool, err error)
	// RevokeAchievement removes the unlock and decrements the counter. ErrNotFound if not held.
	RevokeAchievement(ctx context.Context, userID, achievementID string) error
	// UserAchievements returns unlocks newest first.
	UserAchievements(ctx context.Context, userID string, limit, offset int) ([]*UnlockedAchievement, error)
}

// Store aggregates every persistence contract.
type Store interface {
	UserStore
	FriendStore
	ChatStore
	AchievementStore

	Ping(ctx context.Context) error
	Close()
}

// PairKey returns an order-independent key for two user ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
