package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/realtime"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/errs"
)

func TestRegisterAndLogin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Auth.Register(ctx, RegisterInput{
		Username: "alice_1",
		Email:    "Alice@Example.com",
		Password: "secret-pw",
	})
	req.NoError(err)
	req.NotEmpty(sess.Token)
	req.Equal("alice_1", sess.User.Name)
	req.Equal("alice@example.com", sess.User.Email)
	req.NotEqual("secret-pw", sess.User.PasswordHash)

	// Signing up unlocks First Step
	unlocked, err := f.svc.Achievements.ForUser(ctx, sess.User.ID, DefaultUserAchievementsLimit, 0)
	req.NoError(err)
	req.Len(unlocked, 1)
	req.Equal(AchievementFirstStep, unlocked[0].Name)

	payload, err := jwt.ParseToken(sess.Token, "test-secret")
	req.NoError(err)
	req.Equal(sess.User.ID, payload.ID)
	req.Equal("user", payload.Role)

	_, err = f.svc.Auth.Register(ctx, RegisterInput{Username: "alice_1", Email: "other@example.com", Password: "secret-pw"})
	requireCode(t, err, errs.ErrUserAlreadyExists)

	tests := []struct {
		name  string
		login string
		pass  string
		code  int
	}{
		{name: "by username", login: "alice_1", pass: "secret-pw"},
		{name: "by email", login: "alice@example.com", pass: "secret-pw"},
		{name: "wrong password", login: "alice_1", pass: "nope", code: errs.ErrInvalidCredentials},
		{name: "unknown user", login: "bob", pass: "secret-pw", code: errs.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := f.svc.Auth.Login(ctx, LoginInput{Login: tt.login, Password: tt.pass})
			if tt.code != 0 {
				requireCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, sess.User.LastLogin)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Auth.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret-pw"})
	req.NoError(err)

	u, payload, err := f.svc.Auth.Authenticate(ctx, sess.Token)
	req.NoError(err)
	req.Equal(sess.User.ID, u.ID)
	req.Equal("bob", payload.Username)

	_, _, err = f.svc.Auth.Authenticate(ctx, "")
	requireCode(t, err, errs.ErrUnauthorized)

	_, _, err = f.svc.Auth.Authenticate(ctx, "garbage")
	requireCode(t, err, errs.ErrUnauthorized)

	// A blocked account is refused even with a valid token
	_, err = f.store.SetBlocked(ctx, u.ID, true)
	req.NoError(err)

	_, _, err = f.svc.Auth.Authenticate(ctx, sess.Token)
	requireCode(t, err, errs.ErrUserBlocked)

	_, err = f.svc.Auth.Login(ctx, LoginInput{Login: "bob", Password: "secret-pw"})
	requireCode(t, err, errs.ErrUserBlocked)
}

func TestRefreshToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	token, expiresAt, err := f.svc.Auth.RefreshToken(realtime.Identity{UserID: "u1", Username: "carol", Role: "moderator"})
	req.NoError(err)
	req.False(expiresAt.IsZero())

	payload, err := jwt.ParseToken(token, "test-secret")
	req.NoError(err)
	req.Equal("u1", payload.ID)
	req.Equal("moderator", payload.Role)
}
