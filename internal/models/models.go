package models

import (
	"crypto/subtle"
	"time"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// DefaultProfilePicture dipakai jika user tidak mengunggah avatar.
const DefaultProfilePicture = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"

type User struct {
	ID             string    `json:"id" bson:"_id"`
	Username       string    `json:"username" bson:"username"`
	Email          string    `json:"email" bson:"email"`
	Contact        string    `json:"contact" bson:"contact"`
	Password       string    `json:"-" bson:"password"`
	Role           string    `json:"role" bson:"role"`
	ProfilePicture string    `json:"profile_picture" bson:"profile_picture"`
	RefreshToken   *string   `json:"-" bson:"refresh_token"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RotateRefreshToken makes token the single active refresh token, replacing
// whatever was stored before.
func (u *User) RotateRefreshToken(token string) {
	u.RefreshToken = &token
}

// RevokeRefreshToken invalidates every outstanding refresh token of the user.
func (u *User) RevokeRefreshToken() {
	u.RefreshToken = nil
}

// RefreshTokenMatches reports whether token is exactly the stored one.
func (u *User) RefreshTokenMatches(token string) bool {
	if u.RefreshToken == nil || *u.RefreshToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(token)) == 1
}

// UserPatch berisi field yang boleh diubah; nil berarti tidak diubah.
type UserPatch struct {
	Username       *string
	Email          *string
	Contact        *string
	Password       *string
	ProfilePicture *string
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Contact == nil && p.Password == nil && p.ProfilePicture == nil
}
