package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"messenger/internal/app/service"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

const maxUsersPage = 100

// HandleMyProfile returns the caller's own profile.
func HandleMyProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := CurrentUser(r)

		profile, err := deps.Services.Users.Profile(r.Context(), me.ID, me.ID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, profile)
	}
}

// HandleUserProfile returns another user's public profile.
func HandleUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := deps.Services.Users.Profile(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "userId"))
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, profile)
	}
}

// HandleSearchUsers finds users by name; the query comes from ?q=.
func HandleSearchUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		users, err := deps.Services.Users.Search(r.Context(), CurrentUser(r).ID, q)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, users)
	}
}

// HandleUpdateProfile edits the caller's profile fields.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.ProfilePatch
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Services.Users.UpdateProfile(r.Context(), CurrentUser(r).ID, input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandlePresignAvatar issues an upload URL for a new avatar.
func HandlePresignAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.UploadRequest
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ticket, err := deps.Services.Users.PresignAvatar(r.Context(), CurrentUser(r).ID, input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, ticket)
	}
}

type CommitAvatarInput struct {
	FileKey string `json:"fileKey" validate:"required,max=512"`
}

// HandleCommitAvatar makes an uploaded object the caller's avatar.
func HandleCommitAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CommitAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Services.Users.CommitAvatar(r.Context(), CurrentUser(r).ID, input.FileKey)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleListUsers pages through every account. Admin only.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, customErr := req.QueryInt(r, "limit", maxUsersPage, maxUsersPage)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		offset, customErr := req.QueryInt(r, "offset", 0, 0)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		users, err := deps.Services.Admin.ListUsers(r.Context(), limit, offset)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, users)
	}
}
