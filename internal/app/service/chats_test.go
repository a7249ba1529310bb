package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store/memory"
	"messenger/internal/pkg/errs"
)

func TestCreatePrivate_IsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	first, created, err := f.svc.Chats.CreatePrivate(ctx, "a", "b")
	req.NoError(err)
	req.True(created)
	req.Equal("Bob", first.Name)
	req.Len(first.Members, 2)
	req.Equal([]realtime.EventKind{realtime.EventFriendRequest}, f.events.to("b"))

	// The other side opening the same chat gets the existing one and nobody is notified again
	second, created, err := f.svc.Chats.CreatePrivate(ctx, "b", "a")
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)
	req.Len(f.events.to("a"), 0)
	req.Len(f.events.to("b"), 1)

	_, _, err = f.svc.Chats.CreatePrivate(ctx, "a", "ghost")
	requireCode(t, err, errs.ErrUserNotFound)
}

func TestPostMessage_PushesToOtherParticipants(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")
	f.user(t, "c", "Carol")
	f.user(t, "d", "Dave")

	group, err := f.svc.Chats.CreateGroup(ctx, "a", GroupInput{Name: "Team", Participants: []string{"b", "c", "b"}})
	req.NoError(err)
	req.Equal([]string{"a", "b", "c"}, group.Participants)

	msg, err := f.svc.Chats.PostMessage(ctx, "a", group.ID, MessageInput{Text: "hello"})
	req.NoError(err)
	req.Equal("Alice", msg.Sender.Name)

	req.Equal([]realtime.EventKind{realtime.EventReceiveMessage}, f.events.to("b"))
	req.Equal([]realtime.EventKind{realtime.EventReceiveMessage}, f.events.to("c"))
	req.Empty(f.events.to("d"))
	req.NotContains(f.events.to("a"), realtime.EventReceiveMessage)

	// First message unlocks Communicator for the sender
	req.Contains(f.events.to("a"), realtime.EventAchievementUnlocked)

	chat, err := f.store.FindChat(ctx, group.ID)
	req.NoError(err)
	req.Equal(1, chat.MessageCount)

	history, err := f.svc.Chats.Messages(ctx, "b", group.ID, 10, 0)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hello", history[0].Text)

	_, err = f.svc.Chats.Messages(ctx, "d", group.ID, 10, 0)
	requireCode(t, err, errs.ErrNotChatParticipant)
}

func TestPostMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")
	f.user(t, "d", "Dave")

	chat, _, err := f.svc.Chats.CreatePrivate(ctx, "a", "b")
	require.NoError(t, err)

	tests := []struct {
		name   string
		sender string
		chatID string
		in     MessageInput
		code   int
	}{
		{name: "empty", sender: "a", chatID: chat.ID, in: MessageInput{Text: "  "}, code: errs.ErrMessageEmpty},
		{name: "too long", sender: "a", chatID: chat.ID, in: MessageInput{Text: strings.Repeat("x", MaxMessageBytes+1)}, code: errs.ErrMessageContentTooLong},
		{name: "foreign file", sender: "a", chatID: chat.ID, in: MessageInput{Files: []string{"chats/other/x.png"}}, code: errs.ErrAssetKeyInvalid},
		{name: "outsider", sender: "d", chatID: chat.ID, in: MessageInput{Text: "hi"}, code: errs.ErrNotChatParticipant},
		{name: "missing chat", sender: "a", chatID: "nope", in: MessageInput{Text: "hi"}, code: errs.ErrChatNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Chats.PostMessage(ctx, tt.sender, tt.chatID, tt.in)
			requireCode(t, err, tt.code)
		})
	}

	// An attachment issued for this chat is accepted
	key := storage.NewObjectKey(storage.ChatScope(chat.ID), "photo.png")
	_, err = f.svc.Chats.PostMessage(ctx, "a", chat.ID, MessageInput{Files: []string{key}})
	require.NoError(t, err)
}

func TestPostMessage_StoreFailureDispatchesNothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	st := memory.New()
	rec := &recorder{}
	svc := New(Deps{Store: failingStore{st}, Notifier: rec, JWTSecret: "s"})

	f := &fixture{store: st}
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")

	chat, _, err := svc.Chats.CreatePrivate(ctx, "a", "b")
	req.NoError(err)
	before := rec.total()

	_, err = svc.Chats.PostMessage(ctx, "a", chat.ID, MessageInput{Text: "lost"})
	req.ErrorIs(err, errDiskFull)
	req.Equal(before, rec.total())
}

func TestAuthorizeRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")
	f.user(t, "d", "Dave")

	chat, _, err := f.svc.Chats.CreatePrivate(ctx, "a", "b")
	req.NoError(err)

	req.True(f.svc.Chats.AuthorizeRoom(ctx, "a", chat.ID))
	req.False(f.svc.Chats.AuthorizeRoom(ctx, "d", chat.ID))
	req.True(f.svc.Chats.AuthorizeRoom(ctx, "d", "chat-42"))
}

func TestAttachments(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a", "Alice")
	f.user(t, "b", "Bob")
	f.user(t, "d", "Dave")

	chat, _, err := f.svc.Chats.CreatePrivate(ctx, "a", "b")
	req.NoError(err)

	ticket, err := f.svc.Chats.PresignAttachment(ctx, "a", chat.ID, UploadRequest{FileName: "doc.pdf", MimeType: "application/pdf", FileSize: 2048})
	req.NoError(err)
	req.True(storage.KeyInScope(ticket.Key, storage.ChatScope(chat.ID)))

	url, err := f.svc.Chats.AttachmentURL(ctx, "b", chat.ID, ticket.Key)
	req.NoError(err)
	req.Contains(url, ticket.Key)

	_, err = f.svc.Chats.AttachmentURL(ctx, "d", chat.ID, ticket.Key)
	requireCode(t, err, errs.ErrNotChatParticipant)

	_, err = f.svc.Chats.AttachmentURL(ctx, "b", chat.ID, "avatars/a/x.png")
	requireCode(t, err, errs.ErrAssetKeyInvalid)
}
