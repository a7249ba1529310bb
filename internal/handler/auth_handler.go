/*
Package handler provides the HTTP handlers and routing setup for the messenger server.

Handlers bind and validate the request, call one service operation and write the
standard response envelope. Business rules live in internal/app/service.
*/
package handler

import (
	"net/http"

	"messenger/internal/app/service"
	"messenger/internal/pkg/auth/jwt"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/req"
	"messenger/internal/pkg/resp"
)

type VerifyProofInput struct {
	Nonce   string `json:"nonce" validate:"required,max=64"`
	Counter string `json:"counter" validate:"required,max=64"`
}

// HandlePowChallenge issues a proof-of-work nonce for registration.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.PoW.NewChallenge())
	}
}

// HandlePowVerify trades a solved challenge for a single-use proof token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input VerifyProofInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.PoW.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Debug("Proof rejected", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"token": token})
	}
}

// HandleRegister creates an account. When proof-of-work is enabled the request must carry
// a fresh proof token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input service.RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if deps.PoW.Enabled() {
			if err := deps.PoW.ConsumeProofToken(r); err != nil {
				logx.Warn("Registration rejected: proof of work missing", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
				return
			}
		}

		session, err := deps.Services.Auth.Register(r.Context(), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondCreated(w, r, session)
	}
}

// HandleLogin verifies credentials and issues a token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input service.LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		session, err := deps.Services.Auth.Login(r.Context(), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, session)
	}
}

type SetNameInput struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// HandleSetName sets the caller's display name.
func HandleSetName(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SetNameInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Services.Users.UpdateProfile(r.Context(), CurrentUser(r).ID, service.ProfilePatch{Name: &input.Name})
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}
