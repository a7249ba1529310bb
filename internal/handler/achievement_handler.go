package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"messenger/internal/app/service"
	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

type AssignAchievementInput struct {
	UserID          string `json:"userId" validate:"required,max=64"`
	AchievementName string `json:"achievementName" validate:"required,max=100"`
}

func HandleAchievementCatalog(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog, err := deps.Services.Achievements.Catalog(r.Context())
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, catalog)
	}
}

// HandleUserAchievements lists the unlocks of {userId}, or of the caller on /user/me.
func HandleUserAchievements(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			userID = CurrentUser(r).ID
		}

		limit, customErr := req.QueryInt(r, "limit", service.DefaultUserAchievementsLimit, service.DefaultUserAchievementsLimit)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		offset, customErr := req.QueryInt(r, "offset", 0, 0)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		unlocked, err := deps.Services.Achievements.ForUser(r.Context(), userID, limit, offset)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, unlocked)
	}
}

// HandleAssignAchievement unlocks an achievement for a user. Assigning twice is not an error.
func HandleAssignAchievement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AssignAchievementInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		unlocked, created, err := deps.Services.Achievements.Assign(r.Context(), input.UserID, input.AchievementName)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"achievement": unlocked,
			"created":     created,
		})
	}
}

func HandleRevokeAchievement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AssignAchievementInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Services.Achievements.Revoke(r.Context(), input.UserID, input.AchievementName); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleCreateAchievement adds a catalog entry; the creator unlocks it immediately.
func HandleCreateAchievement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.AchievementInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		a, err := deps.Services.Achievements.Create(r.Context(), CurrentUser(r).ID, input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondCreated(w, r, a)
	}
}

func HandleUpdateAchievement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.AchievementPatch
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		a, err := deps.Services.Achievements.Update(r.Context(), chi.URLParam(r, "id"), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, a)
	}
}

func HandleDeleteAchievement(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Services.Achievements.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandlePresignAchievementImage issues an upload URL for achievement art.
func HandlePresignAchievementImage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.UploadRequest
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ticket, err := deps.Services.Achievements.PresignImage(r.Context(), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, ticket)
	}
}
