package repo

import (
	"context"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
	"time"
)

type UserRepo interface {
	// CreateUser stores the user together with its empty profile.
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	// DeleteUser removes the user and its profile.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type ProfileRepo interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (model.Profile, error)

	GetOrCreateProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error)

	UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (model.Profile, error)
}

// ProfileCache holds read-through views. Every Invalidate bumps a per-user
// generation; Set only stores a view read under the current generation.
type ProfileCache interface {
	Get(ctx context.Context, userID uuid.UUID) (model.UserWithProfile, bool, error)

	Generation(ctx context.Context, userID uuid.UUID) (int64, error)

	// Set reports false when userID was invalidated after gen was read.
	Set(ctx context.Context, view model.UserWithProfile, gen int64, ttl time.Duration) (bool, error)

	Invalidate(ctx context.Context, userID uuid.UUID) error
}
