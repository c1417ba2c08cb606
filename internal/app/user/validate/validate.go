// Package validate turns raw request DTOs into records the stores accept,
// collecting every problem as a field-keyed ValidationError.
package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/go-playground/validator/v10"
)

const maxPhoneLength = 20

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// UserLookup is the part of the user store needed for uniqueness checks.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

type Validator struct {
	v         *validator.Validate
	passwords PasswordChecker
	users     UserLookup
}

func New(passwords PasswordChecker, users UserLookup) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return len(passwords.Check(fl.Field().String())) == 0
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v, passwords: passwords, users: users}
}

// Struct runs tag validation only.
func (val *Validator) Struct(s any) error {
	ve := customErrors.NewValidationError()
	val.collect(s, ve)
	return ve.OrNil()
}

// Registration checks a registration request and returns the sanitized
// record. The password is returned as given.
func (val *Validator) Registration(ctx context.Context, in dto.RegisterDTO) (dto.RegisterDTO, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	ve := customErrors.NewValidationError()
	val.collect(in, ve)

	if in.Password != "" && in.PasswordConfirm != "" && in.Password != in.PasswordConfirm {
		ve.Add("password_confirm", customErrors.CodePasswordMismatch, "Password fields didn't match.")
	}

	if in.Email != "" && !ve.Has("email") {
		taken, err := exists(ctx, in.Email, val.users.GetUserByEmail)
		if err != nil {
			return dto.RegisterDTO{}, customErrors.WrapInternal(err, "lookup email")
		}
		if taken {
			ve.Add("email", customErrors.CodeDuplicateEmail, "user with this email already exists.")
		}
	}
	if in.Username != "" && !ve.Has("username") {
		taken, err := exists(ctx, in.Username, val.users.GetUserByUsername)
		if err != nil {
			return dto.RegisterDTO{}, customErrors.WrapInternal(err, "lookup username")
		}
		if taken {
			ve.Add("username", customErrors.CodeDuplicateUsername, "A user with that username already exists.")
		}
	}

	if err := ve.OrNil(); err != nil {
		return dto.RegisterDTO{}, err
	}
	return in, nil
}

// ProfileUpdate checks an update body. PUT and PATCH share this path: only
// the keys present in the body end up in the patch.
func (val *Validator) ProfileUpdate(in dto.ProfileUpdateDTO) (model.ProfilePatch, error) {
	ve := customErrors.NewValidationError()
	var patch model.ProfilePatch

	if in.Phone.Set {
		if in.Phone.Value == nil {
			ve.Add("phone", customErrors.CodeNull, "This field may not be null.")
		} else if phone := strings.TrimSpace(*in.Phone.Value); len([]rune(phone)) > maxPhoneLength {
			ve.Add("phone", customErrors.CodeMaxLength,
				fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLength))
		} else {
			patch.Phone = &phone
		}
	}

	if in.Address.Set {
		if in.Address.Value == nil {
			ve.Add("address", customErrors.CodeNull, "This field may not be null.")
		} else {
			address := strings.TrimSpace(*in.Address.Value)
			patch.Address = &address
		}
	}

	if in.DateOfBirth.Set {
		patch.DateOfBirthSet = true
		if in.DateOfBirth.Value != nil && strings.TrimSpace(*in.DateOfBirth.Value) != "" {
			d, err := time.Parse(dto.DateLayout, strings.TrimSpace(*in.DateOfBirth.Value))
			if err != nil {
				ve.Add("date_of_birth", customErrors.CodeInvalidDate,
					"Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
			} else {
				patch.DateOfBirth = &d
			}
		}
	}

	if err := ve.OrNil(); err != nil {
		return model.ProfilePatch{}, err
	}
	return patch, nil
}

// NormalizeEmail trims the address and lower-cases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func (val *Validator) collect(s any, ve *customErrors.ValidationError) {
	err := val.v.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add("non_field_errors", customErrors.CodeInvalid, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			ve.Add(fe.Field(), customErrors.CodeRequired, "This field is required.")
		case "email":
			ve.Add(fe.Field(), customErrors.CodeInvalid, "Enter a valid email address.")
		case "max":
			ve.Add(fe.Field(), customErrors.CodeMaxLength,
				fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
		case "username":
			ve.Add(fe.Field(), customErrors.CodeInvalid,
				"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		case "strongpwd":
			for _, msg := range val.passwords.Check(fe.Value().(string)) {
				ve.Add(fe.Field(), customErrors.CodeWeakPassword, msg)
			}
		default:
			ve.Add(fe.Field(), customErrors.CodeInvalid, "Invalid value.")
		}
	}
}

func exists(ctx context.Context, key string, lookup func(context.Context, string) (model.User, error)) (bool, error) {
	_, err := lookup(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case customErrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
