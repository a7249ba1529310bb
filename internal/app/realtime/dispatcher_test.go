package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendToUser_OfflineIsNoop(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1")

	req.False(h.Dispatcher.SendToUser("ghost", UserOnline("x")))
	req.Empty(conns[0].kinds())
}

func TestSendToUsers_DedupesAndExcludes(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "ca", "cb", "cc")
	h.Presence.Register("a", conns[0])
	h.Presence.Register("b", conns[1])
	h.Presence.Register("c", conns[2])
	for _, c := range conns {
		c.reset()
	}

	n := h.Dispatcher.SendToUsers([]string{"a", "b", "a", "c", "offline"}, AvatarUpdated("a", "x.png"), "c")

	req.Equal(2, n)
	req.Equal(1, conns[0].count(EventAvatarUpdated))
	req.Equal(1, conns[1].count(EventAvatarUpdated))
	req.Zero(conns[2].count(EventAvatarUpdated))
}

func TestSendToRoom_ExcludesSender(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1", "c2", "outsider")

	req.True(h.Conns.Join("c1", "chat-42"))
	req.True(h.Conns.Join("c2", "chat-42"))
	req.True(h.Conns.Join("c2", "chat-42"))
	req.False(h.Conns.Join("missing", "chat-42"))
	req.Equal(2, h.Conns.RoomSize("chat-42"))

	n := h.Dispatcher.SendToRoom("chat-42", UserTyping("chat-42", nil), "c1")

	req.Equal(1, n)
	req.Empty(conns[0].kinds())
	req.Equal([]EventKind{EventUserTyping}, conns[1].kinds())
	req.Empty(conns[2].kinds())

	// Leaving the hub drops room membership
	h.Detach(conns[1])
	req.Equal(1, h.Conns.RoomSize("chat-42"))
}

func TestDispatcher_PreservesPerTargetOrder(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1")
	h.Presence.Register("a", conns[0])
	conns[0].reset()

	h.Dispatcher.SendToUser("a", FriendRequestSent(UserSummary{ID: "b"}))
	h.Dispatcher.SendToUser("a", FriendAdded(UserSummary{ID: "b"}))
	h.Dispatcher.BroadcastAll(UserOffline("z"))

	req.Equal([]EventKind{EventFriendRequestSent, EventFriendAdded, EventUserOffline}, conns[0].kinds())
}

func TestEvictUser(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1")
	h.Presence.Register("a", conns[0])

	req.True(h.Dispatcher.EvictUser("a", "blocked"))
	req.Equal([]string{"blocked"}, conns[0].evicted)
	req.False(h.Dispatcher.EvictUser("nobody", "blocked"))
}

func TestEvent_EncodesEnvelope(t *testing.T) {
	req := require.New(t)

	data, err := FriendRemoved("a", UserSummary{ID: "b", Name: "Bob"}).Encode()
	req.NoError(err)

	var got map[string]any
	req.NoError(json.Unmarshal(data, &got))
	req.Equal("friendRemoved", got["event"])
	req.Equal(map[string]any{
		"removedBy": "a",
		"friend":    map[string]any{"id": "b", "name": "Bob"},
	}, got["data"])
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    command
		wantErr error
	}{
		{name: "register", raw: `{"event":"registerUser","data":"u1"}`, want: &registerUserCmd{}},
		{name: "join", raw: `{"event":"joinRoom","data":"chat-42"}`, want: &joinRoomCmd{}},
		{name: "send", raw: `{"event":"sendMessage","data":{"room":"chat-42","text":"hi"}}`, want: &sendMessageCmd{}},
		{name: "typing", raw: `{"event":"stopTyping","data":{"chatId":"chat-42"}}`, want: &typingCmd{}},
		{name: "call", raw: `{"event":"callUser","data":{"userToCall":"c_x","signalData":{"sdp":"x"}}}`, want: &callUserCmd{}},
		{name: "answer", raw: `{"event":"answerCall","data":{"to":"c_x","signal":{"sdp":"y"}}}`, want: &answerCallCmd{}},
		{name: "unknown", raw: `{"event":"selfDestruct","data":{}}`, wantErr: errUnknownEvent},
		{name: "not json", raw: `hello`, wantErr: errMalformedPayload},
		{name: "empty register", raw: `{"event":"registerUser","data":""}`, wantErr: errMalformedPayload},
		{name: "send without room", raw: `{"event":"sendMessage","data":{"text":"hi"}}`, wantErr: errMalformedPayload},
		{name: "answer without signal", raw: `{"event":"answerCall","data":{"to":"c_x"}}`, wantErr: errMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := decodeCommand([]byte(tt.raw))
			if tt.wantErr == nil {
				require.NoError(t, err)
				require.IsType(t, tt.want, cmd)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
