package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

type FriendRequestInput struct {
	FriendID string `json:"friendId" validate:"required,max=64"`
}

// HandleSendFriendRequest sends a friend request to friendId.
func HandleSendFriendRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input FriendRequestInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fr, err := deps.Services.Friends.SendRequest(r.Context(), CurrentUser(r).ID, input.FriendID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondCreated(w, r, fr)
	}
}

// HandleAcceptFriendRequest accepts a pending request addressed to the caller.
func HandleAcceptFriendRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fr, err := deps.Services.Friends.Accept(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "requestId"))
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, fr)
	}
}

// HandleRejectFriendRequest rejects a pending request addressed to the caller.
func HandleRejectFriendRequest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fr, err := deps.Services.Friends.Reject(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "requestId"))
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, fr)
	}
}

func HandleListFriends(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friends, err := deps.Services.Friends.List(r.Context(), CurrentUser(r).ID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, friends)
	}
}

func HandlePendingFriendRequests(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := deps.Services.Friends.Pending(r.Context(), CurrentUser(r).ID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, pending)
	}
}

// HandleRemoveFriend ends the friendship with friendId.
func HandleRemoveFriend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Services.Friends.Remove(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "friendId")); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
