package postgres

import (
	"errors"
	"strings"

	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// uniqueField reports which users column a unique-constraint violation hit.
// Postgres errors carry the constraint name, sqlite ones only the message.
func uniqueField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != uniqueViolation {
			return "", false
		}
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return "email", true
		case strings.Contains(pgErr.ConstraintName, "username"):
			return "username", true
		}
		return "", true
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return "", false
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return "email", true
	case strings.Contains(msg, "users.username"):
		return "username", true
	}
	return "", true
}

// translateCreateError maps a store-level uniqueness race onto the same
// field error the validation layer would have produced.
func translateCreateError(err error) error {
	field, ok := uniqueField(err)
	if !ok {
		return customErrors.WrapInternal(err, "CreateUser")
	}
	switch field {
	case "email":
		return customErrors.NewFieldError("email", customErrors.CodeDuplicateEmail,
			"user with this email already exists.")
	case "username":
		return customErrors.NewFieldError("username", customErrors.CodeDuplicateUsername,
			"A user with that username already exists.")
	default:
		return customErrors.ErrAlreadyExists
	}
}
