package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"messenger/internal/app/service"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

const maxMessagesPage = 100

type CreatePrivateInput struct {
	FriendID string `json:"friendId" validate:"required,max=64"`
}

// HandleCreatePrivateChat opens (or returns) the private chat with friendId.
func HandleCreatePrivateChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreatePrivateInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		chat, created, err := deps.Services.Chats.CreatePrivate(r.Context(), CurrentUser(r).ID, input.FriendID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		if created {
			resp.RespondCreated(w, r, chat)
			return
		}
		resp.RespondSuccess(w, r, chat)
	}
}

// HandleCreateGroupChat creates a group with the caller as first participant.
func HandleCreateGroupChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.GroupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		chat, err := deps.Services.Chats.CreateGroup(r.Context(), CurrentUser(r).ID, input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondCreated(w, r, chat)
	}
}

func HandleMyChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chats, err := deps.Services.Chats.MyChats(r.Context(), CurrentUser(r).ID)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, chats)
	}
}

// HandleListMessages returns a page of history, newest first (?limit=&offset=).
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, customErr := req.QueryInt(r, "limit", service.DefaultMessagesLimit, maxMessagesPage)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		offset, customErr := req.QueryInt(r, "offset", 0, 0)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msgs, err := deps.Services.Chats.Messages(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "chatId"), limit, offset)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, msgs)
	}
}

// HandlePostMessage persists a message; the other participants receive it live.
func HandlePostMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.MessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, err := deps.Services.Chats.PostMessage(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "chatId"), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondCreated(w, r, msg)
	}
}

// HandlePresignAttachment issues an upload URL for a file to attach in the chat.
func HandlePresignAttachment(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input service.UploadRequest
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ticket, err := deps.Services.Chats.PresignAttachment(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "chatId"), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, ticket)
	}
}

// HandlePresignDownload issues a short-lived download URL for an attachment (?key=).
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Services.Chats.AttachmentURL(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "chatId"), key)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"url": url})
	}
}
