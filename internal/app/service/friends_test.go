package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/realtime"
	"messenger/internal/app/store/memory"
	"messenger/internal/pkg/errs"
)

func TestFriendRequest_NotifiesBothSides(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	fr, err := f.svc.Friends.SendRequest(ctx, "a", "b")
	req.NoError(err)

	req.Equal([]realtime.EventKind{realtime.EventFriendRequest}, f.events.to("b"))
	req.Equal([]realtime.EventKind{realtime.EventFriendRequestSent}, f.events.to("a"))

	// Duplicate in either direction is refused without notifications
	before := f.events.total()
	_, err = f.svc.Friends.SendRequest(ctx, "b", "a")
	requireCode(t, err, errs.ErrFriendRequestExists)
	req.Equal(before, f.events.total())

	// When b accepts
	_, err = f.svc.Friends.Accept(ctx, "b", fr.ID)
	req.NoError(err)

	req.Contains(f.events.to("a"), realtime.EventFriendRequestAccepted)
	req.Contains(f.events.to("b"), realtime.EventFriendAdded)
	req.Contains(f.events.to("a"), realtime.EventAchievementUnlocked)

	friends, err := f.svc.Friends.List(ctx, "a")
	req.NoError(err)
	req.Len(friends, 1)
	req.Equal("Bob", friends[0].Name)

	_, err = f.svc.Friends.SendRequest(ctx, "a", "b")
	requireCode(t, err, errs.ErrAlreadyFriends)

	// When a removes b both get friendRemoved
	req.NoError(f.svc.Friends.Remove(ctx, "a", "b"))
	req.Contains(f.events.to("a"), realtime.EventFriendRemoved)
	req.Contains(f.events.to("b"), realtime.EventFriendRemoved)

	requireCode(t, f.svc.Friends.Remove(ctx, "a", "b"), errs.ErrFriendNotFound)
}

func TestFriendRequest_RejectAndValidation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	_, err := f.svc.Friends.SendRequest(ctx, "a", "a")
	requireCode(t, err, errs.ErrSelfFriendRequest)

	_, err = f.svc.Friends.SendRequest(ctx, "a", "ghost")
	requireCode(t, err, errs.ErrUserNotFound)

	fr, err := f.svc.Friends.SendRequest(ctx, "a", "b")
	req.NoError(err)

	pending, err := f.svc.Friends.Pending(ctx, "b")
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal("Alice", pending[0].FromUser.Name)

	// Only the recipient may answer
	_, err = f.svc.Friends.Reject(ctx, "a", fr.ID)
	requireCode(t, err, errs.ErrFriendRequestNotFound)

	_, err = f.svc.Friends.Reject(ctx, "b", fr.ID)
	req.NoError(err)
	req.Contains(f.events.to("a"), realtime.EventFriendRequestRejected)

	_, err = f.svc.Friends.Accept(ctx, "b", fr.ID)
	requireCode(t, err, errs.ErrFriendRequestNotFound)
}

func TestFriendRequest_StoreFailureDispatchesNothing(t *testing.T) {
	req := require.New(t)
	st := memory.New()
	rec := &recorder{}
	svc := New(Deps{Store: failingStore{st}, Notifier: rec, JWTSecret: "s"})

	f := &fixture{store: st}
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	_, err := svc.Friends.SendRequest(context.Background(), "a", "b")
	req.ErrorIs(err, errDiskFull)
	req.Zero(rec.total())
}

type hubConn struct {
	id     string
	events []*realtime.Event
}

func (c *hubConn) ID() string { return c.id }

func (c *hubConn) Send(evt *realtime.Event) bool {
	c.events = append(c.events, evt)
	return true
}

func (c *hubConn) Evict(string) {}

func (c *hubConn) received(kind realtime.EventKind) []*realtime.Event {
	var out []*realtime.Event
	for _, e := range c.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestFriendRequest_LiveDeliveryThroughHub(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := realtime.NewHub()
	st := memory.New()
	svc := New(Deps{Store: st, Notifier: hub.Dispatcher, JWTSecret: "s"})

	f := &fixture{store: st}
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	h1, h2 := &hubConn{id: "h1"}, &hubConn{id: "h2"}
	hub.Attach(h1)
	hub.Attach(h2)
	hub.Presence.Register("a", h1)
	hub.Presence.Register("b", h2)

	// When A sends a friend request to B
	_, err := svc.Friends.SendRequest(ctx, "a", "b")
	req.NoError(err)

	// Then B receives exactly one friendRequest naming A
	got := h2.received(realtime.EventFriendRequest)
	req.Len(got, 1)
	data, err := got[0].Encode()
	req.NoError(err)

	var wire struct {
		Data struct {
			FromUser realtime.UserSummary `json:"fromUser"`
		} `json:"data"`
	}
	req.NoError(json.Unmarshal(data, &wire))
	req.Equal("a", wire.Data.FromUser.ID)
	req.Equal("Alice", wire.Data.FromUser.Name)

	// When B disconnects and A opens a private chat with B
	hub.Detach(h2)
	before := len(h2.events)

	_, created, err := svc.Chats.CreatePrivate(ctx, "a", "b")
	req.NoError(err)
	req.True(created)

	// Then nothing reaches B and no error surfaced
	req.Len(h2.events, before)
}
