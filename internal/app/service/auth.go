package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"messenger/internal/app/realtime"
	"messenger/internal/app/store"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/randx"
)

// RegisterInput creates an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Name     string `json:"name" validate:"omitempty,min=1,max=50"`
}

// LoginInput authenticates by username or email.
type LoginInput struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=100"`
}

// Session is the result of a successful register or login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *store.User `json:"user"`
}

// AuthService registers accounts, checks credentials and issues identity tokens.
type AuthService struct {
	store        store.Store
	achievements *AchievementService
	secret       string
	now          func() time.Time
	logger       zerolog.Logger
}

func NewAuthService(s store.Store, achievements *AchievementService, secret string, now func() time.Time) *AuthService {
	return &AuthService{
		store:        s,
		achievements: achievements,
		secret:       secret,
		now:          now,
		logger:       logx.Component("auth"),
	}
}

// Register creates a user with a bcrypt-hashed password and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Username
	}

	now := s.now().UTC()
	u := &store.User{
		ID:           randx.ID(),
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		Name:         name,
		Role:         store.RoleUser,
		Profile:      store.Profile{Status: store.DefaultStatus},
		Stats:        store.Stats{Level: 1},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, errs.NewError(errs.ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("User registered")
	s.achievements.Award(ctx, u.ID, AchievementFirstStep)

	return s.session(u)
}

// Login checks credentials. Blocked accounts are refused.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.store.FindUserByUsername(ctx, in.Login)
	if errors.Is(err, store.ErrNotFound) && strings.Contains(in.Login, "@") {
		u, err = s.store.FindUserByEmail(ctx, in.Login)
	}
	if err != nil {
		return nil, mapNotFound(err, errs.ErrInvalidCredentials, "find user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	}

	if u.Blocked {
		return nil, errs.NewError(errs.ErrUserBlocked)
	}

	now := s.now().UTC()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}
	u.LastLogin = &now

	return s.session(u)
}

func (s *AuthService) session(u *store.User) (*Session, error) {
	token, expiresAt, err := s.IssueToken(u.ID, u.Username, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// IssueToken signs a fresh identity token.
func (s *AuthService) IssueToken(userID, username, role string) (string, time.Time, error) {
	payload := &jwt.Payload{ID: userID, Username: username, Role: role}

	token, err := jwt.GenerateToken(payload, s.secret, jwt.UserIdentityExpiration)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, payload.ExpiresAtTime(), nil
}

// RefreshToken re-issues the token of a live WebSocket session.
func (s *AuthService) RefreshToken(id realtime.Identity) (string, time.Time, error) {
	return s.IssueToken(id.UserID, id.Username, id.Role)
}

// Authenticate resolves a token to its current user. The role and blocked flag come
// from the store, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*store.User, *jwt.Payload, error) {
	if token == "" {
		return nil, nil, errs.NewError(errs.ErrUnauthorized)
	}

	payload, err := jwt.ParseToken(token, s.secret)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected identity token")
		return nil, nil, errs.NewError(errs.ErrUnauthorized)
	}

	u, err := s.store.FindUserByID(ctx, payload.ID)
	if err != nil {
		return nil, nil, mapNotFound(err, errs.ErrUnauthorized, "find user")
	}

	if u.Blocked {
		return nil, nil, errs.NewError(errs.ErrUserBlocked)
	}

	return u, payload, nil
}
