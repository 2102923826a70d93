package domain

import (
	"slices"
	"time"
)

// RoleAdmin grants permission to create a profile for any user.
const RoleAdmin = "admin"

// DateLayout is the wire format of date_of_birth.
const DateLayout = "2006-01-02"

// Requester is the authenticated caller, resolved per request.
type Requester struct {
	ID    int64
	Roles []string
}

// HasRole reports whether the requester carries the named role.
func (r Requester) HasRole(role string) bool {
	return slices.Contains(r.Roles, role)
}

// TargetUser is the directory view of the user a profile is created for.
type TargetUser struct {
	ID        int64
	Active    bool
	ProfileID *int64 // non-nil when a profile is already linked
}

// HasProfile reports whether the user already owns a profile.
func (u *TargetUser) HasProfile() bool {
	return u.ProfileID != nil
}

// Avatar is the raw uploaded image.
type Avatar struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProfileInput is the creation payload as received from the client.
// Field order matches validation order.
type ProfileInput struct {
	FirstName   string `form:"first_name" validate:"required,max=100,personname"`
	LastName    string `form:"last_name" validate:"required,max=100,personname"`
	Gender      string `form:"gender" validate:"required,gender"`
	DateOfBirth string `form:"date_of_birth" validate:"required,datetime=2006-01-02,birthdate"`
	Info        string `form:"info" validate:"required"`
	Avatar      Avatar `form:"-"`
}

// Profile is the persisted per-user record.
type Profile struct {
	ID          int64
	UserID      int64
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth time.Time
	Info        string
	Avatar      string
}

// ProfileResponse is the JSON representation returned to clients.
type ProfileResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Info        string `json:"info"`
	Avatar      string `json:"avatar"`
}

// ToResponse maps a stored profile to its output representation.
func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth.Format(DateLayout),
		Info:        p.Info,
		Avatar:      p.Avatar,
	}
}
