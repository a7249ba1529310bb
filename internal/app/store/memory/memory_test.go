package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/store"
)

func seedUser(t *testing.T, s *Store, id, username string) *store.User {
	t.Helper()
	u := &store.User{
		ID:        id,
		Username:  username,
		Email:     username + "@example.com",
		Name:      username,
		Role:      store.RoleUser,
		Stats:     store.Stats{Level: 1},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCreateUser_Conflict(t *testing.T) {
	req := require.New(t)
	s := New()
	seedUser(t, s, "u1", "alice")

	err := s.CreateUser(context.Background(), &store.User{ID: "u2", Username: "ALICE", Email: "other@example.com"})
	req.ErrorIs(err, store.ErrConflict)

	err = s.CreateUser(context.Background(), &store.User{ID: "u3", Username: "bob", Email: "alice@example.com"})
	req.ErrorIs(err, store.ErrConflict)
}

func TestFriendRequestLifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := New()
	seedUser(t, s, "a", "alice")
	seedUser(t, s, "b", "bob")

	// Given a pending request from a to b
	fr := &store.FriendRequest{ID: "r1", FromUserID: "a", ToUserID: "b", Status: store.FriendRequestPending, CreatedAt: time.Now()}
	req.NoError(s.CreateFriendRequest(ctx, fr))

	// Then a second request in the opposite direction conflicts
	err := s.CreateFriendRequest(ctx, &store.FriendRequest{ID: "r2", FromUserID: "b", ToUserID: "a", Status: store.FriendRequestPending})
	req.ErrorIs(err, store.ErrConflict)

	// And only the recipient can accept it
	_, err = s.AcceptFriendRequest(ctx, "r1", "a")
	req.ErrorIs(err, store.ErrNotFound)

	accepted, err := s.AcceptFriendRequest(ctx, "r1", "b")
	req.NoError(err)
	req.Equal(store.FriendRequestAccepted, accepted.Status)

	friends, err := s.AreFriends(ctx, "b", "a")
	req.NoError(err)
	req.True(friends)

	a, _ := s.FindUserByID(ctx, "a")
	b, _ := s.FindUserByID(ctx, "b")
	req.Equal(1, a.Stats.FriendCount)
	req.Equal(1, b.Stats.FriendCount)

	// When accepting again
	_, err = s.AcceptFriendRequest(ctx, "r1", "b")
	req.ErrorIs(err, store.ErrNotFound)

	// When removing the friendship
	req.NoError(s.RemoveFriendship(ctx, "a", "b"))
	req.ErrorIs(s.RemoveFriendship(ctx, "a", "b"), store.ErrNotFound)

	a, _ = s.FindUserByID(ctx, "a")
	req.Equal(0, a.Stats.FriendCount)
}

func TestPrivateChatUniqueness(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := New()

	req.NoError(s.CreateChat(ctx, &store.Chat{ID: "c1", Type: store.ChatPrivate, Participants: []string{"a", "b"}}))
	req.ErrorIs(s.CreateChat(ctx, &store.Chat{ID: "c2", Type: store.ChatPrivate, Participants: []string{"b", "a"}}), store.ErrConflict)

	c, err := s.FindPrivateChat(ctx, "b", "a")
	req.NoError(err)
	req.Equal("c1", c.ID)
}

func TestMessagesNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := New()
	seedUser(t, s, "a", "alice")
	req.NoError(s.CreateChat(ctx, &store.Chat{ID: "c1", Type: store.ChatGroup, Participants: []string{"a"}}))

	base := time.Now().UTC()
	for i, id := range []string{"m1", "m2", "m3"} {
		req.NoError(s.CreateMessage(ctx, &store.Message{ID: id, ChatID: "c1", SenderID: "a", Text: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}

	msgs, err := s.ListMessages(ctx, "c1", 2, 0)
	req.NoError(err)
	req.Equal([]string{"m3", "m2"}, []string{msgs[0].ID, msgs[1].ID})

	msgs, err = s.ListMessages(ctx, "c1", 2, 2)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("m1", msgs[0].ID)

	c, _ := s.FindChat(ctx, "c1")
	req.Equal(3, c.MessageCount)
	a, _ := s.FindUserByID(ctx, "a")
	req.Equal(3, a.Stats.MessageCount)

	req.ErrorIs(s.CreateMessage(ctx, &store.Message{ID: "m4", ChatID: "missing", SenderID: "a"}), store.ErrNotFound)
}

func TestAchievementAssignment(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := New()
	seedUser(t, s, "a", "alice")
	first := store.DefaultCatalog()[0]

	at := time.Now().UTC()
	got, created, err := s.AssignAchievement(ctx, "a", first.ID, at)
	req.NoError(err)
	req.True(created)
	req.Equal(at, got)

	// Assigning twice keeps the original unlock time
	again, created, err := s.AssignAchievement(ctx, "a", first.ID, at.Add(time.Hour))
	req.NoError(err)
	req.False(created)
	req.Equal(at, again)

	u, _ := s.FindUserByID(ctx, "a")
	req.Equal(1, u.Stats.AchievementCount)

	req.ErrorIs(s.DeleteAchievement(ctx, first.ID), store.ErrInUse)

	req.NoError(s.RevokeAchievement(ctx, "a", first.ID))
	req.ErrorIs(s.RevokeAchievement(ctx, "a", first.ID), store.ErrNotFound)
	req.NoError(s.DeleteAchievement(ctx, first.ID))

	list, err := s.ListAchievements(ctx, true)
	req.NoError(err)
	req.Len(list, len(store.DefaultCatalog())-1)
}
