package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/randx"
)

const (
	// MaxMessageBytes caps the text of a persisted message.
	MaxMessageBytes = 5000

	// MaxMessageFiles caps the attachments of a persisted message.
	MaxMessageFiles = 5

	// DefaultMessagesLimit is the default page size of a chat history.
	DefaultMessagesLimit = 50
)

// GroupInput creates a group chat.
type GroupInput struct {
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	Description  string   `json:"description" validate:"max=500"`
	Participants []string `json:"participants" validate:"max=100,dive,required"`
}

// MessageInput posts a message to a chat.
type MessageInput struct {
	Text    string   `json:"text"`
	Files   []string `json:"files" validate:"max=5,dive,required,max=512"`
	Sticker string   `json:"sticker" validate:"max=256"`
}

// ChatView is a chat with its participants resolved.
type ChatView struct {
	*store.Chat
	Members []realtime.UserSummary `json:"members"`
}

// ChatService manages chats and persisted messages.
type ChatService struct {
	store        store.Store
	notifier     Notifier
	uploads      *UploadService
	achievements *AchievementService
	now          func() time.Time
	logger       zerolog.Logger
}

func NewChatService(s store.Store, n Notifier, uploads *UploadService, achievements *AchievementService, now func() time.Time) *ChatService {
	return &ChatService{
		store:        s,
		notifier:     n,
		uploads:      uploads,
		achievements: achievements,
		now:          now,
		logger:       logx.Component("chats"),
	}
}

// CreatePrivate returns the private chat between userID and friendID, creating it if needed.
// created reports whether a new chat was made; only then is the friend notified.
func (s *ChatService) CreatePrivate(ctx context.Context, userID, friendID string) (*ChatView, bool, error) {
	if userID == friendID {
		return nil, false, errs.NewError(errs.ErrSelfFriendRequest)
	}

	if existing, err := s.store.FindPrivateChat(ctx, userID, friendID); err == nil {
		view, err := s.view(ctx, existing)
		return view, false, err
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("find private chat: %w", err)
	}

	users, err := s.store.UsersByIDs(ctx, []string{userID, friendID})
	if err != nil {
		return nil, false, fmt.Errorf("load users: %w", err)
	}
	byID := usersByID(users)
	user, friend := byID[userID], byID[friendID]
	if friend == nil {
		return nil, false, errs.NewError(errs.ErrUserNotFound)
	}
	if user == nil {
		return nil, false, errs.NewError(errs.ErrUnauthorized)
	}

	now := s.now().UTC()
	chat := &store.Chat{
		ID:            randx.ID(),
		Name:          friend.DisplayName(),
		Type:          store.ChatPrivate,
		CreatedBy:     userID,
		Participants:  []string{userID, friendID},
		LastMessageAt: now,
		CreatedAt:     now,
	}

	if err := s.store.CreateChat(ctx, chat); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, false, fmt.Errorf("create chat: %w", err)
		}
		// lost a race with the other participant
		existing, err := s.store.FindPrivateChat(ctx, userID, friendID)
		if err != nil {
			return nil, false, fmt.Errorf("find private chat: %w", err)
		}
		view, err := s.view(ctx, existing)
		return view, false, err
	}

	view := &ChatView{Chat: chat, Members: []realtime.UserSummary{UserSummary(user), UserSummary(friend)}}

	s.notifier.SendToUser(friendID, realtime.FriendRequest(UserSummary(user), chatSummary(view)))

	return view, true, nil
}

// CreateGroup creates a group chat with the caller and the listed users.
func (s *ChatService) CreateGroup(ctx context.Context, userID string, in GroupInput) (*ChatView, error) {
	ids := lo.Uniq(append([]string{userID}, in.Participants...))

	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if len(users) != len(ids) {
		return nil, errs.NewError(errs.ErrUserNotFound)
	}

	now := s.now().UTC()
	chat := &store.Chat{
		ID:            randx.ID(),
		Name:          strings.TrimSpace(in.Name),
		Type:          store.ChatGroup,
		Description:   in.Description,
		CreatedBy:     userID,
		Participants:  ids,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	byID := usersByID(users)
	return &ChatView{
		Chat:    chat,
		Members: lo.Map(ids, func(id string, _ int) realtime.UserSummary { return UserSummary(byID[id]) }),
	}, nil
}

// MyChats lists the caller's chats, most recently active first.
func (s *ChatService) MyChats(ctx context.Context, userID string) ([]*ChatView, error) {
	chats, err := s.store.ChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chats for user: %w", err)
	}

	ids := lo.Uniq(lo.FlatMap(chats, func(c *store.Chat, _ int) []string { return c.Participants }))
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byID := usersByID(users)

	return lo.Map(chats, func(c *store.Chat, _ int) *ChatView { return newChatView(c, byID) }), nil
}

// Messages returns a page of the chat history, newest first.
func (s *ChatService) Messages(ctx context.Context, userID, chatID string, limit, offset int) ([]realtime.MessagePayload, error) {
	if _, err := s.memberChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	senders, err := s.store.UsersByIDs(ctx, lo.Map(msgs, func(m *store.Message, _ int) string { return m.SenderID }))
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	byID := usersByID(senders)

	return lo.Map(msgs, func(m *store.Message, _ int) realtime.MessagePayload {
		sender := realtime.UserSummary{ID: m.SenderID}
		if u, ok := byID[m.SenderID]; ok {
			sender = UserSummary(u)
		}
		return messagePayload(m, sender)
	}), nil
}

// PostMessage persists a message and pushes it to every other participant.
func (s *ChatService) PostMessage(ctx context.Context, userID, chatID string, in MessageInput) (*realtime.MessagePayload, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Files) == 0 && in.Sticker == "" {
		return nil, errs.NewError(errs.ErrMessageEmpty)
	}
	if len(in.Text) > MaxMessageBytes {
		return nil, errs.NewError(errs.ErrMessageContentTooLong, MaxMessageBytes)
	}
	if len(in.Files) > MaxMessageFiles {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	for _, key := range in.Files {
		if !storage.KeyInScope(key, storage.ChatScope(chatID)) {
			return nil, errs.NewError(errs.ErrAssetKeyInvalid)
		}
	}

	if _, err := s.memberChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	sender, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find sender")
	}
	firstMessage := sender.Stats.MessageCount == 0

	msg := &store.Message{
		ID:        randx.ID(),
		ChatID:    chatID,
		SenderID:  userID,
		Text:      in.Text,
		Files:     lo.Ternary(in.Files == nil, []string{}, in.Files),
		Sticker:   in.Sticker,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, mapNotFound(err, errs.ErrChatNotFound, "create message")
	}

	payload := messagePayload(msg, UserSummary(sender))

	participants, err := s.store.ChatParticipants(ctx, chatID)
	if err != nil {
		// the message is stored; a failed fan-out lookup only costs the live push
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("Failed to load participants for delivery")
	} else {
		n := s.notifier.SendToUsers(participants, realtime.ReceiveMessage(payload), userID)
		s.logger.Debug().Str("chat_id", chatID).Int("delivered", n).Msg("Message pushed")
	}

	if firstMessage {
		s.achievements.Award(ctx, userID, AchievementCommunicator)
	}

	return &payload, nil
}

// PresignAttachment issues an upload slot for a file to be attached in chatID.
func (s *ChatService) PresignAttachment(ctx context.Context, userID, chatID string, in UploadRequest) (*UploadTicket, error) {
	if _, err := s.memberChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.uploads.Presign(ctx, storage.ChatScope(chatID), in, false)
}

// AttachmentURL issues a download URL for an attachment of chatID.
func (s *ChatService) AttachmentURL(ctx context.Context, userID, chatID, key string) (string, error) {
	if _, err := s.memberChat(ctx, userID, chatID); err != nil {
		return "", err
	}
	return s.uploads.DownloadURL(ctx, key, storage.ChatScope(chatID))
}

// AuthorizeRoom lets a live connection join room. Rooms named after a chat are limited to its
// participants; any other room name is an ad-hoc relay group open to everyone.
func (s *ChatService) AuthorizeRoom(ctx context.Context, userID, room string) bool {
	chat, err := s.store.FindChat(ctx, room)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return true
		}
		s.logger.Warn().Err(err).Str("room", room).Msg("Room authorization lookup failed")
		return false
	}
	return chat.HasParticipant(userID)
}

func (s *ChatService) memberChat(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	chat, err := s.store.FindChat(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrChatNotFound, "find chat")
	}
	if !chat.HasParticipant(userID) {
		return nil, errs.NewError(errs.ErrNotChatParticipant)
	}
	return chat, nil
}

func (s *ChatService) view(ctx context.Context, c *store.Chat) (*ChatView, error) {
	users, err := s.store.UsersByIDs(ctx, c.Participants)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return newChatView(c, usersByID(users)), nil
}

func newChatView(c *store.Chat, byID map[string]*store.User) *ChatView {
	members := make([]realtime.UserSummary, 0, len(c.Participants))
	for _, id := range c.Participants {
		if u, ok := byID[id]; ok {
			members = append(members, UserSummary(u))
		}
	}
	return &ChatView{Chat: c, Members: members}
}

func chatSummary(v *ChatView) *realtime.ChatSummary {
	return &realtime.ChatSummary{
		ID:           v.ID,
		Name:         v.Name,
		Type:         string(v.Type),
		Participants: v.Members,
	}
}

func messagePayload(m *store.Message, sender realtime.UserSummary) realtime.MessagePayload {
	return realtime.MessagePayload{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Sender:    sender,
		Text:      m.Text,
		Files:     m.Files,
		Sticker:   m.Sticker,
		CreatedAt: m.CreatedAt,
	}
}
