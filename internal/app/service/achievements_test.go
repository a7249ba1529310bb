package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/realtime"
	"messenger/internal/pkg/errs"
)

func TestAssignAchievement_IsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")

	first, created, err := f.svc.Achievements.Assign(ctx, "a", AchievementSocial)
	req.NoError(err)
	req.True(created)

	again, created, err := f.svc.Achievements.Assign(ctx, "a", AchievementSocial)
	req.NoError(err)
	req.False(created)
	req.Equal(first.UnlockedAt, again.UnlockedAt)

	// Exactly one notification for two assignments
	req.Equal([]realtime.EventKind{realtime.EventAchievementUnlocked}, f.events.to("a"))

	_, _, err = f.svc.Achievements.Assign(ctx, "a", "Nope")
	requireCode(t, err, errs.ErrAchievementNotFound)

	_, _, err = f.svc.Achievements.Assign(ctx, "ghost", AchievementSocial)
	requireCode(t, err, errs.ErrUserNotFound)
}

func TestRevokeAchievement(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")

	requireCode(t, f.svc.Achievements.Revoke(ctx, "a", AchievementSocial), errs.ErrAchievementNotAssigned)

	_, _, err := f.svc.Achievements.Assign(ctx, "a", AchievementSocial)
	req.NoError(err)
	req.NoError(f.svc.Achievements.Revoke(ctx, "a", AchievementSocial))
	req.Contains(f.events.to("a"), realtime.EventAchievementRevoked)

	list, err := f.svc.Achievements.ForUser(ctx, "a", DefaultUserAchievementsLimit, 0)
	req.NoError(err)
	req.Empty(list)
}

func TestCreateAchievement_AssignsCreator(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "admin", "Root")

	a, err := f.svc.Achievements.Create(ctx, "admin", AchievementInput{Name: "Night Owl", Type: "badge"})
	req.NoError(err)
	req.Equal("badge", string(a.Type))
	req.Equal([]realtime.EventKind{realtime.EventAchievementUnlocked}, f.events.to("admin"))

	_, err = f.svc.Achievements.Create(ctx, "admin", AchievementInput{Name: "Night Owl"})
	requireCode(t, err, errs.ErrAchievementExists)

	// Held achievements cannot be deleted
	requireCode(t, f.svc.Achievements.Delete(ctx, a.ID), errs.ErrAchievementInUse)

	req.NoError(f.svc.Achievements.Revoke(ctx, "admin", "Night Owl"))
	req.NoError(f.svc.Achievements.Delete(ctx, a.ID))
	requireCode(t, f.svc.Achievements.Delete(ctx, a.ID), errs.ErrAchievementNotFound)
}

func TestUpdateAchievement(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	catalog, err := f.svc.Achievements.Catalog(ctx)
	req.NoError(err)
	req.NotEmpty(catalog)

	inactive := false
	updated, err := f.svc.Achievements.Update(ctx, catalog[0].ID, AchievementPatch{Active: &inactive})
	req.NoError(err)
	req.False(updated.Active)

	after, err := f.svc.Achievements.Catalog(ctx)
	req.NoError(err)
	req.Len(after, len(catalog)-1)

	taken := catalog[1].Name
	_, err = f.svc.Achievements.Update(ctx, catalog[2].ID, AchievementPatch{Name: &taken})
	requireCode(t, err, errs.ErrAchievementExists)

	_, err = f.svc.Achievements.Update(ctx, "missing", AchievementPatch{Active: &inactive})
	requireCode(t, err, errs.ErrAchievementNotFound)
}
