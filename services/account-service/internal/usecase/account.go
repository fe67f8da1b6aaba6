package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/otp"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/repository"
)

// AccountUsecase defines registration, login, profile and email verification use cases.
type AccountUsecase interface {
	Register(ctx context.Context, params RegisterParams) (string, error)
	Login(ctx context.Context, params LoginParams) (string, error)
	EditProfile(ctx context.Context, userID string, params ProfileParams) (*model.User, error)

	// VerifyOTP verifies the account of userID with the emailed code.
	VerifyOTP(ctx context.Context, userID, code string) error

	// VerifyLink verifies the account addressed by its public uuid, as embedded in the emailed link.
	VerifyLink(ctx context.Context, userUUID, code string) error

	// ResendOTP replaces the verification code of userID and emails the new one.
	ResendOTP(ctx context.Context, userID string) error
}

// ProfileParams are the profile fields shared by registration and edit. On edit an empty Password keeps
// the current one.
type ProfileParams struct {
	Firstname          string
	Lastname           string
	Email              string
	Phone              string
	DateOfBirth        time.Time
	ArticlePreferences []string
	Password           string
}

type RegisterParams = ProfileParams

type LoginParams struct {
	Email    string
	Password string
}

type accountUsecase struct {
	userRepo   repository.UserRepository
	otpEngine  *otp.Engine
	hasher     PasswordHasher
	tokens     TokenIssuer
	notifier   Notifier
	accountCfg *config.AccountServiceConfig
	logger     *zerolog.Logger
}

func NewAccountUsecase(
	userRepo repository.UserRepository,
	otpEngine *otp.Engine,
	hasher PasswordHasher,
	tokens TokenIssuer,
	notifier Notifier,
	accountCfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
) AccountUsecase {
	return &accountUsecase{
		userRepo:   userRepo,
		otpEngine:  otpEngine,
		hasher:     hasher,
		tokens:     tokens,
		notifier:   notifier,
		accountCfg: accountCfg,
		logger:     logger,
	}
}

func (u *accountUsecase) Register(ctx context.Context, params RegisterParams) (string, error) {
	// Email is checked before phone so a doubly duplicated request reports the email.
	if taken, err := u.emailTaken(ctx, params.Email); err != nil {
		return "", err
	} else if taken {
		return "", ErrDuplicateEmail
	}

	if taken, err := u.phoneTaken(ctx, params.Phone); err != nil {
		return "", err
	} else if taken {
		return "", ErrDuplicatePhone
	}

	if len(params.Password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	passwordHash, err := u.hasher.Hash(params.Password)
	if err != nil {
		return "", err
	}

	code, expiry, err := u.otpEngine.Issue(otp.PurposeVerification)
	if err != nil {
		return "", err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		UUID:               uuid.NewString(),
		Firstname:          params.Firstname,
		Lastname:           params.Lastname,
		Email:              params.Email,
		Phone:              params.Phone,
		DateOfBirth:        params.DateOfBirth,
		ArticlePreferences: params.ArticlePreferences,
		PasswordHash:       passwordHash,
		IsVerified:         false,
		OTP:                &code,
		OTPExpiry:          &expiry,
		Followers:          []model.FollowEdge{},
		Following:          []model.FollowEdge{},
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent registration between the lookups and the insert.
			return "", u.conflictError(ctx, params.Email, "")
		}

		return "", err
	}

	link := verificationLink(u.accountCfg.FrontendURL, user.UUID, code)
	dispatch(ctx, u.notifier, u.logger, user.Email, subjectVerifyAccount, welcomeBody(link, code))

	return u.tokens.Issue(user.ID.Hex())
}

func (u *accountUsecase) Login(ctx context.Context, params LoginParams) (string, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}

		return "", err
	}

	if ok, err := u.hasher.Verify(params.Password, user.PasswordHash); err != nil {
		return "", err
	} else if !ok {
		return "", ErrInvalidCredentials
	}

	return u.tokens.Issue(user.ID.Hex())
}

func (u *accountUsecase) EditProfile(ctx context.Context, userID string, params ProfileParams) (*model.User, error) {
	if params.Password != "" && len(params.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	user, err := u.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.Email != user.Email {
		if taken, err := u.emailTaken(ctx, params.Email); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrDuplicateEmail
		}
	}

	if params.Phone != user.Phone {
		if taken, err := u.phoneTaken(ctx, params.Phone); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrDuplicatePhone
		}
	}

	user.Firstname = params.Firstname
	user.Lastname = params.Lastname
	user.Email = params.Email
	user.Phone = params.Phone
	user.DateOfBirth = params.DateOfBirth
	user.ArticlePreferences = params.ArticlePreferences

	if params.Password != "" {
		passwordHash, err := u.hasher.Hash(params.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = passwordHash
	}

	updated, err := u.userRepo.SaveUser(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, u.conflictError(ctx, params.Email, userID)
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, err
		}
	}

	return updated, nil
}

func (u *accountUsecase) VerifyOTP(ctx context.Context, userID, code string) error {
	user, err := u.getUser(ctx, userID)
	if err != nil {
		return err
	}

	return u.verify(ctx, user, code)
}

func (u *accountUsecase) VerifyLink(ctx context.Context, userUUID, code string) error {
	user, err := u.userRepo.GetUserByUUID(ctx, userUUID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}

		return err
	}

	return u.verify(ctx, user, code)
}

func (u *accountUsecase) ResendOTP(ctx context.Context, userID string) error {
	user, err := u.getUser(ctx, userID)
	if err != nil {
		return err
	}

	code, expiry, err := u.otpEngine.Issue(otp.PurposeVerification)
	if err != nil {
		return err
	}

	user.OTP = &code
	user.OTPExpiry = &expiry

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		return err
	}

	link := verificationLink(u.accountCfg.FrontendURL, user.UUID, code)
	dispatch(ctx, u.notifier, u.logger, user.Email, subjectVerifyAccount, resendBody(link, code))

	return nil
}

func (u *accountUsecase) verify(ctx context.Context, user *model.User, code string) error {
	if err := u.otpEngine.Verify(user.OTP, user.OTPExpiry, code); err != nil {
		switch {
		case errors.Is(err, otp.ErrMismatch):
			return ErrOtpMismatch
		case errors.Is(err, otp.ErrExpired):
			return ErrOtpExpired
		default:
			return err
		}
	}

	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiry = nil

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		return err
	}

	return nil
}

func (u *accountUsecase) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

func (u *accountUsecase) emailTaken(ctx context.Context, email string) (bool, error) {
	return exists(u.userRepo.GetUserByEmail(ctx, email))
}

func (u *accountUsecase) phoneTaken(ctx context.Context, phone string) (bool, error) {
	return exists(u.userRepo.GetUserByPhone(ctx, phone))
}

// conflictError decides which unique field a store conflict was about. selfID excludes the user being
// edited from the email lookup.
func (u *accountUsecase) conflictError(ctx context.Context, email, selfID string) error {
	owner, err := u.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil && owner.ID.Hex() != selfID:
		return ErrDuplicateEmail
	case err == nil, errors.Is(err, repository.ErrUserNotFound):
		return ErrDuplicatePhone
	default:
		return fmt.Errorf("resolve unique conflict: %w", err)
	}
}

func exists(_ *model.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrUserNotFound):
		return false, nil
	default:
		return false, err
	}
}
