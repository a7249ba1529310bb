package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"messenger/internal/app/realtime"
	"messenger/internal/app/store"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/resp"
)

// HandleWebSocket authenticates the upgrade request and hands the connection to a realtime client.
// Browsers cannot set headers on upgrades, so the token usually arrives as ?token=.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, payload, err := deps.Services.Auth.Authenticate(r.Context(), jwt.TokenFromRequest(r))
		if err != nil {
			logx.Warn("WebSocket connection rejected: authentication failed", "error", err.Error())
			resp.RespondErr(w, r, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := realtime.NewClient(deps.Hub, conn, realtime.ClientOptions{
			Identity:      identityOf(user, payload),
			QueueSize:     deps.Config.SendQueueSize,
			IssueToken:    deps.Services.Auth.RefreshToken,
			AuthorizeRoom: deps.Services.Chats.AuthorizeRoom,
		})

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "user_id", user.ID)

		client.Start()
	}
}

func identityOf(u *store.User, p *jwt.Payload) realtime.Identity {
	return realtime.Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        string(u.Role),
		TokenExpiry: p.ExpiresAtTime(),
	}
}
