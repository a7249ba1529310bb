package handler

import (
	"context"
	"net/http"

	"messenger/internal/app/store"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/resp"
)

type contextKey string

const currentUserKey contextKey = "current_user"

// RequireUser rejects requests without a valid token and loads the caller from the store,
// so role and blocked state are always current.
func RequireUser(deps *AppDeps) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, payload, err := deps.Services.Auth.Authenticate(r.Context(), jwt.TokenFromRequest(r))
			if err != nil {
				resp.RespondErr(w, r, err)
				return
			}

			ctx := jwt.WithPayload(r.Context(), payload)
			ctx = context.WithValue(ctx, currentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the caller's role passes allow.
// It must run after RequireUser.
func RequireRole(allow func(store.Role) bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil || !allow(user.Role) {
				resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAdmin(r store.Role) bool { return r == store.RoleAdmin }

// CurrentUser returns the caller loaded by RequireUser, or nil.
func CurrentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(currentUserKey).(*store.User)
	return u
}
