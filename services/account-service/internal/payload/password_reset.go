package payload

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordResponse struct {
	Msg string `json:"msg"`
}

// ResetPasswordRequest carries no shape rules: the link is checked first, then confirmation and length.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
