package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/articles-feed-api/shared/validation"
)

func (h *accountHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	dob, err := payload.ParseDate(req.DateOfBirth)
	if err != nil {
		h.writeError(w, r, "register", invalidDateOfBirth())
		return
	}

	token, err := h.accountUsecase.Register(r.Context(), usecase.RegisterParams{
		Firstname:          req.Firstname,
		Lastname:           req.Lastname,
		Email:              req.Email,
		Phone:              req.Phone,
		DateOfBirth:        dob,
		ArticlePreferences: req.ArticlePreferences,
		Password:           req.Password,
	})
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}

func (h *accountHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	token, err := h.accountUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}

func (h *accountHTTPHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req payload.EditProfileRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "edit_profile", err)
		return
	}

	dob, err := payload.ParseDate(req.DateOfBirth)
	if err != nil {
		h.writeError(w, r, "edit_profile", invalidDateOfBirth())
		return
	}

	user, err := h.accountUsecase.EditProfile(r.Context(), userID, usecase.ProfileParams{
		Firstname:          req.Firstname,
		Lastname:           req.Lastname,
		Email:              req.Email,
		Phone:              req.Phone,
		DateOfBirth:        dob,
		ArticlePreferences: req.ArticlePreferences,
		Password:           req.Password,
	})
	if err != nil {
		h.writeError(w, r, "edit_profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *accountHTTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req payload.VerifyOTPRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, "verify_otp", err)
		return
	}

	if err := h.accountUsecase.VerifyOTP(r.Context(), userID, string(req.OTP)); err != nil {
		h.writeError(w, r, "verify_otp", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.VerifyOTPResponse{IsVerified: true})
}

func (h *accountHTTPHandler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	err := h.accountUsecase.VerifyLink(r.Context(), chi.URLParam(r, "uuid"), chi.URLParam(r, "otp"))
	if err != nil {
		h.writeError(w, r, "verify_link", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.VerifyOTPResponse{IsVerified: true})
}

func (h *accountHTTPHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if err := h.accountUsecase.ResendOTP(r.Context(), userID); err != nil {
		h.writeError(w, r, "resend_otp", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "OTP sent to your email"})
}

func invalidDateOfBirth() error {
	return validation.Errors{{Param: "date_of_birth", Msg: "Please Enter a valid date of birth"}}
}

func toProfileResponse(user *model.User) payload.ProfileResponse {
	return payload.ProfileResponse{
		Firstname:          user.Firstname,
		Lastname:           user.Lastname,
		Email:              user.Email,
		Phone:              user.Phone,
		DateOfBirth:        user.DateOfBirth.Format(payload.DateLayout),
		ArticlePreferences: user.ArticlePreferences,
		IsVerified:         user.IsVerified,
	}
}
