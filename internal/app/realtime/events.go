/*
Package realtime implements presence tracking and best-effort event delivery over live connections.

This file defines the closed set of outbound events. Events are only built through the
constructors below, each with a fixed payload shape, and are encoded once no matter how
many connections receive them.
*/
package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// EventKind is the wire name of an event.
type EventKind string

const (
	EventOnlineUsers           EventKind = "onlineUsers"
	EventUserOnline            EventKind = "userOnline"
	EventUserOffline           EventKind = "userOffline"
	EventReceiveMessage        EventKind = "receiveMessage"
	EventUserTyping            EventKind = "userTyping"
	EventUserStopTyping        EventKind = "userStopTyping"
	EventCallUser              EventKind = "callUser"
	EventCallAccepted          EventKind = "callAccepted"
	EventAchievementUnlocked   EventKind = "achievementUnlocked"
	EventAchievementRevoked    EventKind = "achievementRevoked"
	EventFriendRequest         EventKind = "friendRequest"
	EventFriendRequestSent     EventKind = "friendRequestSent"
	EventFriendRequestAccepted EventKind = "friendRequestAccepted"
	EventFriendRequestRejected EventKind = "friendRequestRejected"
	EventFriendAdded           EventKind = "friendAdded"
	EventFriendRemoved         EventKind = "friendRemoved"
	EventAvatarUpdated         EventKind = "avatarUpdated"
	EventSessionReplaced       EventKind = "sessionReplaced"
	EventTokenUpdate           EventKind = "tokenUpdate"
)

// Event is one outbound notification.
type Event struct {
	Kind    EventKind
	Payload any

	once sync.Once
	data []byte
	err  error
}

type envelope struct {
	Event EventKind `json:"event"`
	Data  any       `json:"data"`
}

func newEvent(kind EventKind, payload any) *Event {
	return &Event{Kind: kind, Payload: payload}
}

// Encode returns the wire form {"event": kind, "data": payload}.
// The result is computed once and shared by every recipient.
func (e *Event) Encode() ([]byte, error) {
	e.once.Do(func() {
		e.data, e.err = json.Marshal(envelope{Event: e.Kind, Data: e.Payload})
	})
	return e.data, e.err
}

// UserSummary identifies a user in event payloads.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ChatSummary describes a chat in event payloads.
type ChatSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Participants []UserSummary `json:"participants"`
}

// MessagePayload is a persisted message as pushed to chat participants.
type MessagePayload struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chatId"`
	Sender    UserSummary `json:"sender"`
	Text      string      `json:"text"`
	Files     []string    `json:"files"`
	Sticker   string      `json:"sticker,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AchievementNotice describes an unlocked or revoked achievement.
type AchievementNotice struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Type        string     `json:"type"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// OnlineUsers is the presence snapshot sent to a connection right after it registers.
func OnlineUsers(userIDs []string) *Event {
	if userIDs == nil {
		userIDs = []string{}
	}
	return newEvent(EventOnlineUsers, userIDs)
}

func UserOnline(userID string) *Event {
	return newEvent(EventUserOnline, userID)
}

func UserOffline(userID string) *Event {
	return newEvent(EventUserOffline, userID)
}

// RelayedMessage wraps a raw client payload for the ephemeral room relay.
func RelayedMessage(raw json.RawMessage) *Event {
	return newEvent(EventReceiveMessage, raw)
}

// ReceiveMessage carries a persisted chat message.
func ReceiveMessage(msg MessagePayload) *Event {
	return newEvent(EventReceiveMessage, msg)
}

func UserTyping(chatID string, user json.RawMessage) *Event {
	return newEvent(EventUserTyping, struct {
		ChatID string          `json:"chatId"`
		User   json.RawMessage `json:"user,omitempty"`
	}{chatID, user})
}

func UserStopTyping(chatID string) *Event {
	return newEvent(EventUserStopTyping, struct {
		ChatID string `json:"chatId"`
	}{chatID})
}

// CallUser relays an offer; from is the caller's connection id.
func CallUser(signal json.RawMessage, from string) *Event {
	return newEvent(EventCallUser, struct {
		Signal json.RawMessage `json:"signal"`
		From   string          `json:"from"`
	}{signal, from})
}

func CallAccepted(signal json.RawMessage) *Event {
	return newEvent(EventCallAccepted, signal)
}

func AchievementUnlocked(a AchievementNotice) *Event {
	return newEvent(EventAchievementUnlocked, struct {
		Achievement AchievementNotice `json:"achievement"`
	}{a})
}

func AchievementRevoked(a AchievementNotice) *Event {
	return newEvent(EventAchievementRevoked, struct {
		Achievement AchievementNotice `json:"achievement"`
	}{a})
}

// FriendRequest notifies the target of a new request. chat is set when the request
// originates from opening a private chat.
func FriendRequest(from UserSummary, chat *ChatSummary) *Event {
	return newEvent(EventFriendRequest, struct {
		FromUser UserSummary  `json:"fromUser"`
		Chat     *ChatSummary `json:"chat,omitempty"`
	}{from, chat})
}

func FriendRequestSent(to UserSummary) *Event {
	return newEvent(EventFriendRequestSent, struct {
		ToUser UserSummary `json:"toUser"`
	}{to})
}

func FriendRequestAccepted(by UserSummary) *Event {
	return newEvent(EventFriendRequestAccepted, struct {
		AcceptedBy UserSummary `json:"acceptedBy"`
	}{by})
}

func FriendRequestRejected(by UserSummary) *Event {
	return newEvent(EventFriendRequestRejected, struct {
		RejectedBy UserSummary `json:"rejectedBy"`
	}{by})
}

func FriendAdded(friend UserSummary) *Event {
	return newEvent(EventFriendAdded, struct {
		Friend UserSummary `json:"friend"`
	}{friend})
}

// FriendRemoved tells a user that friend is no longer on their list.
func FriendRemoved(removedBy string, friend UserSummary) *Event {
	return newEvent(EventFriendRemoved, struct {
		RemovedBy string      `json:"removedBy"`
		Friend    UserSummary `json:"friend"`
	}{removedBy, friend})
}

func AvatarUpdated(userID, avatar string) *Event {
	return newEvent(EventAvatarUpdated, struct {
		UserID string `json:"userId"`
		Avatar string `json:"avatar"`
	}{userID, avatar})
}

func SessionReplaced(reason string) *Event {
	return newEvent(EventSessionReplaced, struct {
		Reason string `json:"reason"`
	}{reason})
}

func TokenUpdate(token string) *Event {
	return newEvent(EventTokenUpdate, struct {
		Token string `json:"token"`
	}{token})
}
