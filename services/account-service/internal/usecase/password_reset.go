package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/otp"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/repository"
)

// PasswordResetUsecase defines the forgot/reset password flow. A reset is authorized by the pair of an
// opaque password uuid and a numeric code, both delivered in the same emailed link.
type PasswordResetUsecase interface {
	// ForgotPassword issues a fresh reset pair for the account of email and mails the link.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword consumes the pair, stores the new password and returns a session token.
	ResetPassword(ctx context.Context, params ResetPasswordParams) (string, error)
}

type ResetPasswordParams struct {
	PasswordUUID    string
	OTP             string
	Password        string
	ConfirmPassword string
}

type passwordResetUsecase struct {
	userRepo   repository.UserRepository
	otpEngine  *otp.Engine
	hasher     PasswordHasher
	tokens     TokenIssuer
	notifier   Notifier
	accountCfg *config.AccountServiceConfig
	logger     *zerolog.Logger
}

func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	otpEngine *otp.Engine,
	hasher PasswordHasher,
	tokens TokenIssuer,
	notifier Notifier,
	accountCfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo:   userRepo,
		otpEngine:  otpEngine,
		hasher:     hasher,
		tokens:     tokens,
		notifier:   notifier,
		accountCfg: accountCfg,
		logger:     logger,
	}
}

func (u *passwordResetUsecase) ForgotPassword(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}

		return err
	}

	code, expiry, err := u.otpEngine.Issue(otp.PurposePasswordReset)
	if err != nil {
		return err
	}

	// A new request replaces any pending pair.
	passwordUUID := uuid.NewString()
	user.PasswordOTP = &code
	user.PasswordOTPExpiry = &expiry
	user.PasswordUUID = &passwordUUID

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		return err
	}

	link := resetLink(u.accountCfg.FrontendURL, passwordUUID, code)
	dispatch(ctx, u.notifier, u.logger, user.Email, subjectResetPassword, resetBody(link))

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, params ResetPasswordParams) (string, error) {
	user, err := u.userRepo.GetUserByPasswordUUID(ctx, params.PasswordUUID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidLink
		}

		return "", err
	}

	// The order of these checks is part of the contract: expiry, then code, then confirmation.
	if u.otpEngine.Expired(user.PasswordOTPExpiry) {
		return "", ErrLinkExpired
	}

	if !otp.Matches(user.PasswordOTP, params.OTP) {
		return "", ErrLinkIncorrect
	}

	if params.Password != params.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	if len(params.Password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	passwordHash, err := u.hasher.Hash(params.Password)
	if err != nil {
		return "", err
	}

	user.PasswordHash = passwordHash
	user.ClearPasswordReset()

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		return "", err
	}

	return u.tokens.Issue(user.ID.Hex())
}
