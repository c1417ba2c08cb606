package dto

import (
	"encoding/json"
)

type RegisterDTO struct {
	Email           string `json:"email"            validate:"required,email,max=254"`
	Username        string `json:"username"         validate:"required,max=150,username"`
	FirstName       string `json:"first_name"       validate:"required,max=150"`
	LastName        string `json:"last_name"        validate:"required,max=150"`
	Password        string `json:"password"         validate:"required,strongpwd"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshDTO struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ProfileUpdateDTO keeps track of which keys were present in the body, so
// that an update only touches what the client sent.
type ProfileUpdateDTO struct {
	Phone       OptionalString `json:"phone"`
	Address     OptionalString `json:"address"`
	DateOfBirth OptionalString `json:"date_of_birth"`
}

// OptionalString tells an absent key (Set=false) from an explicit null
// (Set=true, Value=nil).
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func Some(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}
