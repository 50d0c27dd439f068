package models

import (
	"strings"
	"time"
)

// Role is the entitlement tier of a profile.
type Role string

const (
	RoleFree       Role = "free"
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

// ParseRole maps a stored role string to a Role. Anything unknown is free.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSubscriber:
		return RoleSubscriber
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleFree
	}
}

// Metered reports whether the role is subject to the daily allowance.
func (r Role) Metered() bool {
	return r != RoleSubscriber && r != RoleAdmin
}

// DefaultDisplayName is shown when a profile has neither a full name nor a username.
const DefaultDisplayName = "User"

// GuestDisplayName is shown when nobody is signed in.
const GuestDisplayName = "Guest"

// Profile is the application-owned record for an identity. ID equals the identity id.
type Profile struct {
	ID                string    `bson:"id" json:"id"`
	Username          string    `bson:"username,omitempty" json:"username,omitempty"`
	FullName          string    `bson:"full_name,omitempty" json:"full_name,omitempty"`
	AvatarURL         string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Role              Role      `bson:"role" json:"role"`
	ProfessionType    string    `bson:"profession_type,omitempty" json:"profession_type,omitempty"`
	Qualification     string    `bson:"qualification,omitempty" json:"qualification,omitempty"`
	YearsOfExperience *int      `bson:"years_of_experience,omitempty" json:"years_of_experience,omitempty"`
	Specialization    string    `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Bio               string    `bson:"bio,omitempty" json:"bio,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName falls back from full name to username to "User".
func (p Profile) DisplayName() string {
	if n := strings.TrimSpace(p.FullName); n != "" {
		return n
	}
	if n := strings.TrimSpace(p.Username); n != "" {
		return n
	}
	return DefaultDisplayName
}

// ProfileUpdate holds the fields the profile edit form may change. Nil means unchanged.
// Role is deliberately absent: only subscription refresh writes it.
type ProfileUpdate struct {
	Username          *string `json:"username"`
	FullName          *string `json:"full_name"`
	AvatarURL         *string `json:"avatar_url"`
	ProfessionType    *string `json:"profession_type"`
	Qualification     *string `json:"qualification"`
	YearsOfExperience *int    `json:"years_of_experience"`
	Specialization    *string `json:"specialization"`
	Bio               *string `json:"bio"`
}

// Fields returns the bson field set carried by the update.
func (u ProfileUpdate) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	setString("username", u.Username)
	setString("full_name", u.FullName)
	setString("avatar_url", u.AvatarURL)
	setString("profession_type", u.ProfessionType)
	setString("qualification", u.Qualification)
	setString("specialization", u.Specialization)
	setString("bio", u.Bio)
	if u.YearsOfExperience != nil {
		fields["years_of_experience"] = *u.YearsOfExperience
	}
	return fields
}
