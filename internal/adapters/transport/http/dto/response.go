package dto

import (
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
)

const DateLayout = "2006-01-02"

type RegisterResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type TokenResponse struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int    `json:"expires_in"`
	UserID    string `json:"user_id"`
}

type ProfileResponse struct {
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	DateOfBirth *string    `json:"date_of_birth"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type UserProfileResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Profile   ProfileResponse `json:"profile"`
}

func NewRegisterResponse(u model.User) RegisterResponse {
	return RegisterResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		Username: u.Username,
		Message:  "User registered successfully",
	}
}

func NewTokenResponse(pair model.TokenPair) TokenResponse {
	return TokenResponse{
		Access:    pair.AccessToken,
		Refresh:   pair.RefreshToken,
		ExpiresIn: int(pair.AccessTTL.Seconds()),
		UserID:    pair.UserId.String(),
	}
}

// NewProfileResponse renders an empty profile when p is nil.
func NewProfileResponse(p *model.Profile) ProfileResponse {
	if p == nil {
		return ProfileResponse{}
	}
	resp := ProfileResponse{
		Phone:     p.Phone,
		Address:   p.Address,
		CreatedAt: &p.CreatedAt,
		UpdatedAt: &p.UpdatedAt,
	}
	if p.DateOfBirth != nil {
		d := p.DateOfBirth.Format(DateLayout)
		resp.DateOfBirth = &d
	}
	return resp
}

func NewUserProfileResponse(v model.UserWithProfile) UserProfileResponse {
	return UserProfileResponse{
		ID:        v.User.ID.String(),
		Email:     v.User.Email,
		Username:  v.User.Username,
		FirstName: v.User.FirstName,
		LastName:  v.User.LastName,
		Profile:   NewProfileResponse(v.Profile),
	}
}
