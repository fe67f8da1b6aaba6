package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/usecase"
)

func (h *accountHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "forgot_password", err)
		return
	}

	if err := h.passwordResetUsecase.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, "forgot_password", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.ForgotPasswordResponse{Msg: "Email sent"})
}

func (h *accountHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	token, err := h.passwordResetUsecase.ResetPassword(r.Context(), usecase.ResetPasswordParams{
		PasswordUUID:    chi.URLParam(r, "password_uuid"),
		OTP:             chi.URLParam(r, "otp"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}
