package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"messenger/internal/app/store"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/limiter"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/resp"
)

const (
	AuthRate  = 0.2
	AuthBurst = 5
	WSRate    = 0.5
	WSBurst   = 5
)

// Router sets up the HTTP routing table. The rate limiters' janitors stop with ctx.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(WSRate), WSBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

			auth.Get("/challenge", HandlePowChallenge(deps))
			auth.Post("/verify", HandlePowVerify(deps))

			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))

			auth.With(RequireUser(deps)).Put("/set-name", HandleSetName(deps))
		})

		api.Group(func(priv chi.Router) {
			priv.Use(RequireUser(deps))

			priv.Route("/users", func(users chi.Router) {
				users.With(RequireRole(isAdmin)).Get("/", HandleListUsers(deps))
				users.Get("/search", HandleSearchUsers(deps))
				users.Get("/me", HandleMyProfile(deps))
				users.Get("/{userId}", HandleUserProfile(deps))
			})

			priv.Route("/friends", func(friends chi.Router) {
				friends.Post("/request", HandleSendFriendRequest(deps))
				friends.Post("/accept/{requestId}", HandleAcceptFriendRequest(deps))
				friends.Post("/reject/{requestId}", HandleRejectFriendRequest(deps))
				friends.Get("/list", HandleListFriends(deps))
				friends.Get("/requests", HandlePendingFriendRequests(deps))
				friends.Delete("/remove/{friendId}", HandleRemoveFriend(deps))

				friends.Get("/profile", HandleMyProfile(deps))
				friends.Put("/profile", HandleUpdateProfile(deps))
				friends.Get("/profile/{userId}", HandleUserProfile(deps))
				friends.Post("/avatar/presign", HandlePresignAvatar(deps))
				friends.Post("/avatar", HandleCommitAvatar(deps))
			})

			priv.Route("/chats", func(chats chi.Router) {
				chats.Get("/search/users", HandleSearchUsers(deps))
				chats.Post("/create-private", HandleCreatePrivateChat(deps))
				chats.Post("/create", HandleCreateGroupChat(deps))
				chats.Get("/my", HandleMyChats(deps))
				chats.Get("/{chatId}/messages", HandleListMessages(deps))
				chats.Post("/{chatId}/messages", HandlePostMessage(deps))
				chats.Post("/{chatId}/files/presign-upload", HandlePresignAttachment(deps))
				chats.Get("/{chatId}/files/presign-download", HandlePresignDownload(deps))
			})

			priv.Route("/achievements", func(ach chi.Router) {
				ach.Get("/", HandleAchievementCatalog(deps))
				ach.Get("/user/me", HandleUserAchievements(deps))
				ach.Get("/{userId}", HandleUserAchievements(deps))

				ach.Group(func(admin chi.Router) {
					admin.Use(RequireRole(isAdmin))

					admin.Post("/assign", HandleAssignAchievement(deps))
					admin.Post("/revoke", HandleRevokeAchievement(deps))
					admin.Post("/create", HandleCreateAchievement(deps))
					admin.Post("/image/presign", HandlePresignAchievementImage(deps))
					admin.Put("/update/{id}", HandleUpdateAchievement(deps))
					admin.Delete("/delete/{id}", HandleDeleteAchievement(deps))
				})
			})

			priv.With(RequireRole(isAdmin)).Put("/admin/manage-role", HandleManageRole(deps))

			priv.Route("/moderation", func(mod chi.Router) {
				mod.Use(RequireRole(store.Role.CanModerate))

				mod.Put("/block-user", HandleBlockUser(deps))
				mod.Delete("/messages/{messageId}", HandleDeleteMessage(deps))
			})
		})
	})

	r.With(wsLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}

// HandleHealth reports liveness plus store reachability and the live connection count.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(r.Context()); err != nil {
			logx.Error(err, "Health check: store unreachable")
			resp.RespondError(w, r, errs.NewError(errs.ErrServiceUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "Messenger Server",
			"connections": deps.Hub.Conns.Count(),
			"online":      len(deps.Hub.Presence.Online()),
		})
	}
}
