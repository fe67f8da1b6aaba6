package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/articles-feed-api/shared/middleware"
	"github.com/vasapolrittideah/articles-feed-api/shared/validation"
)

type accountHTTPHandler struct {
	accountUsecase       usecase.AccountUsecase
	followUsecase        usecase.FollowUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *validation.Validator
	logger               *zerolog.Logger
}

// NewRouter wires the account endpoints. Routes under the authenticate middleware see the caller's id
// through middleware.UserIDFromContext.
func NewRouter(
	accountUsecase usecase.AccountUsecase,
	followUsecase usecase.FollowUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	validator *validation.Validator,
	authenticate func(http.Handler) http.Handler,
	logger *zerolog.Logger,
) http.Handler {
	h := &accountHTTPHandler{
		accountUsecase:       accountUsecase,
		followUsecase:        followUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validator:            validator,
		logger:               logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/auth", h.Login)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password/{password_uuid}/{otp}", h.ResetPassword)
		r.Post("/verify-account/{uuid}/{otp}", h.VerifyLink)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Put("/edit", h.EditProfile)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Get("/resend-otp", h.ResendOTP)
			r.Put("/follow/{id}", h.ToggleFollow)
		})
	})

	return r
}

type errorResponse struct {
	Errors []validation.FieldError `json:"errors"`
}

// clientErrors are recovered locally and answered with their message. Anything else is an internal
// failure.
var clientErrors = []struct {
	err    error
	status int
	msg    string
}{
	{usecase.ErrDuplicateEmail, http.StatusBadRequest, "User with this email already exists"},
	{usecase.ErrDuplicatePhone, http.StatusBadRequest, "User with this phone number already exists"},
	{usecase.ErrUserNotFound, http.StatusBadRequest, "User does not exist"},
	{usecase.ErrPasswordTooShort, http.StatusBadRequest, "Password must be atleast 6 characters long"},
	{usecase.ErrInvalidCredentials, http.StatusBadRequest, "Invalid Credentials"},
	{usecase.ErrOtpMismatch, http.StatusBadRequest, "OTP does not match"},
	{usecase.ErrOtpExpired, http.StatusBadRequest, "OTP has expired"},
	{usecase.ErrSelfFollowForbidden, http.StatusBadRequest, "Can't follow yourself!"},
	{usecase.ErrInvalidLink, http.StatusBadRequest, "Invalid password reset link"},
	{usecase.ErrLinkExpired, http.StatusBadRequest, "Link has expired"},
	{usecase.ErrLinkIncorrect, http.StatusBadRequest, "Link is incorrect"},
	{usecase.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
}

func (h *accountHTTPHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errors: verrs})
		return
	}

	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			writeJSON(w, ce.status, errorResponse{Errors: []validation.FieldError{{Msg: ce.msg}}})
			return
		}
	}

	h.logger.Error().
		Err(err).
		Str("operation", op).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Msg("request failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// decode reads the JSON body into dst and validates it.
func (h *accountHTTPHandler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validation.Errors{{Msg: "Invalid request body"}}
	}

	return h.validator.Struct(dst)
}

func (h *accountHTTPHandler) callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "No token, authorization denied"})
	}
	return userID, ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
