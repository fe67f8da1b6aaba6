package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FollowEdge references the other side of a follow relation.
type FollowEdge struct {
	User bson.ObjectID `bson:"user"`
}

// User represents an account of the articles feed. A follow "A follows B" is stored twice: in A.Following
// and in B.Followers, both most-recent-first.
type User struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	UUID               string        `bson:"uuid"`
	Firstname          string        `bson:"firstname"`
	Lastname           string        `bson:"lastname"`
	Email              string        `bson:"email"`
	Phone              string        `bson:"phone"`
	DateOfBirth        time.Time     `bson:"date_of_birth"`
	ArticlePreferences []string      `bson:"article_preferences"`
	PasswordHash       string        `bson:"password"`

	IsVerified bool       `bson:"is_verified"`
	OTP        *int       `bson:"otp,omitempty"`
	OTPExpiry  *time.Time `bson:"otp_expiry,omitempty"`

	PasswordOTP       *int       `bson:"password_otp,omitempty"`
	PasswordOTPExpiry *time.Time `bson:"password_otp_expiry,omitempty"`
	PasswordUUID      *string    `bson:"password_uuid,omitempty"`

	Followers []FollowEdge `bson:"followers"`
	Following []FollowEdge `bson:"following"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// IsFollowing reports whether u follows id.
func (u *User) IsFollowing(id bson.ObjectID) bool {
	return containsEdge(u.Following, id)
}

// HasFollower reports whether id follows u.
func (u *User) HasFollower(id bson.ObjectID) bool {
	return containsEdge(u.Followers, id)
}

// ClearPasswordReset drops the pending password reset handshake.
func (u *User) ClearPasswordReset() {
	u.PasswordOTP = nil
	u.PasswordOTPExpiry = nil
	u.PasswordUUID = nil
}

// PrependEdge inserts id at the front of edges.
func PrependEdge(edges []FollowEdge, id bson.ObjectID) []FollowEdge {
	out := make([]FollowEdge, 0, len(edges)+1)
	out = append(out, FollowEdge{User: id})
	return append(out, edges...)
}

// RemoveEdge returns edges without any entry for id.
func RemoveEdge(edges []FollowEdge, id bson.ObjectID) []FollowEdge {
	out := make([]FollowEdge, 0, len(edges))
	for _, e := range edges {
		if e.User != id {
			out = append(out, e)
		}
	}
	return out
}

func containsEdge(edges []FollowEdge, id bson.ObjectID) bool {
	for _, e := range edges {
		if e.User == id {
			return true
		}
	}
	return false
}
