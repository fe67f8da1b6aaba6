package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/otp"
)

const (
	subjectVerifyAccount = "Verify your account"
	subjectResetPassword = "Reset Password"
)

// dispatch hands a message to the notifier. Failures are logged and swallowed.
func dispatch(ctx context.Context, notifier Notifier, logger *zerolog.Logger, to, subject, body string) {
	if err := notifier.Send(ctx, to, subject, body); err != nil {
		logger.Warn().
			Err(err).
			Str("to", to).
			Str("subject", subject).
			Msg("failed to dispatch notification")
	}
}

func verificationLink(frontendURL, userUUID string, code int) string {
	return fmt.Sprintf("%s/verify-account/%s/%s", strings.TrimRight(frontendURL, "/"), userUUID, otp.Format(code))
}

func resetLink(frontendURL, passwordUUID string, code int) string {
	return fmt.Sprintf("%s/reset-password/%s/%s", strings.TrimRight(frontendURL, "/"), passwordUUID, otp.Format(code))
}

func welcomeBody(link string, code int) string {
	return fmt.Sprintf("Welcome to Articles Feed. To create articles you need to verify your account.\n\n"+
		"Please click on the following link, or paste this into your browser to complete the process:\n\n"+
		"%s\n\n"+
		"or paste the following otp in settings page %s\n", link, otp.Format(code))
}

func resendBody(link string, code int) string {
	return fmt.Sprintf("Welcome to the Articles Feed. Your OTP is %s\n\nYou can also verify your account here: %s\n",
		otp.Format(code), link)
}

func resetBody(link string) string {
	return fmt.Sprintf("You are receiving this email because you (or someone else) have requested the reset "+
		"of the password for your account.\n\n"+
		"Please click on the following link, or paste this into your browser to complete the process:\n\n"+
		"%s\n\n"+
		"If you did not request this, please ignore this email and your password will remain unchanged.\n", link)
}
