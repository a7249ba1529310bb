package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"messenger/internal/app/store"
	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

type ManageRoleInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user moderator admin"`
}

// HandleManageRole changes the role of the account with the given email. Admin only.
func HandleManageRole(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ManageRoleInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Services.Admin.SetRole(r.Context(), input.Email, store.Role(input.Role))
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type BlockUserInput struct {
	UserID  string `json:"userId" validate:"required,max=64"`
	Blocked *bool  `json:"blocked" validate:"required"`
}

// HandleBlockUser blocks or unblocks a user. Moderators and admins only.
func HandleBlockUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input BlockUserInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Services.Admin.SetBlocked(r.Context(), CurrentUser(r), input.UserID, *input.Blocked)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleDeleteMessage removes a message. Moderators and admins only.
func HandleDeleteMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Services.Admin.DeleteMessage(r.Context(), chi.URLParam(r, "messageId")); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
