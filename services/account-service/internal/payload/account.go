package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type RegisterRequest struct {
	Firstname          string   `json:"firstname"           validate:"required"`
	Lastname           string   `json:"lastname"            validate:"required"`
	Email              string   `json:"email"               validate:"required,email"`
	Phone              string   `json:"phone"               validate:"required,numeric"`
	DateOfBirth        string   `json:"date_of_birth"       validate:"required"`
	ArticlePreferences []string `json:"article_preferences" validate:"required,min=1,max=2,dive,required"`
	Password           string   `json:"password"            validate:"required,min=6"`
}

// EditProfileRequest overwrites every profile field. Password is optional.
type EditProfileRequest struct {
	Firstname          string   `json:"firstname"           validate:"required"`
	Lastname           string   `json:"lastname"            validate:"required"`
	Email              string   `json:"email"               validate:"required,email"`
	Phone              string   `json:"phone"               validate:"required,numeric"`
	DateOfBirth        string   `json:"date_of_birth"       validate:"required"`
	ArticlePreferences []string `json:"article_preferences" validate:"required,min=1,max=2,dive,required"`
	Password           string   `json:"password"            validate:"omitempty,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type VerifyOTPRequest struct {
	OTP OTPValue `json:"otp" validate:"required"`
}

type VerifyOTPResponse struct {
	IsVerified bool `json:"is_verified"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileResponse is the public projection of an account. It never carries secrets.
type ProfileResponse struct {
	Firstname          string   `json:"firstname"`
	Lastname           string   `json:"lastname"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	DateOfBirth        string   `json:"date_of_birth"`
	ArticlePreferences []string `json:"article_preferences"`
	IsVerified         bool     `json:"is_verified"`
}

type FollowEdgeResponse struct {
	User string `json:"user"`
}

// UserResponse is the caller's record returned by the follow toggle.
type UserResponse struct {
	ID   string `json:"_id"`
	UUID string `json:"uuid"`
	ProfileResponse
	Followers []FollowEdgeResponse `json:"followers"`
	Following []FollowEdgeResponse `json:"following"`
}

// OTPValue accepts a code sent either as a JSON string or a JSON number.
type OTPValue string

func (v *OTPValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = OTPValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("otp must be a string or a number")
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("otp must be an integer")
	}

	*v = OTPValue(n.String())
	return nil
}

// DateLayout is the calendar date format of date_of_birth in responses.
const DateLayout = "2006-01-02"

// ParseDate reads a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
