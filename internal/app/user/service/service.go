package service

import (
	"context"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
)

type Service interface {
	// Register validates the request, stores the user with an empty profile
	// and returns the stored user.
	Register(ctx context.Context, in dto.RegisterDTO) (model.User, error)

	// CreateSuperuser is Register with the staff and superuser flags set.
	CreateSuperuser(ctx context.Context, in dto.RegisterDTO) (model.User, error)

	// Promote grants the staff and superuser flags to an existing account
	// and reactivates it.
	Promote(ctx context.Context, email string) (model.User, error)

	Login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error)

	IssueTokens(ctx context.Context, user model.User) (model.TokenPair, error)

	Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error)

	// Authenticate resolves a bearer access token to its active user.
	Authenticate(ctx context.Context, accessToken string) (model.User, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (model.UserWithProfile, error)

	UpdateProfile(ctx context.Context, userID uuid.UUID, in dto.ProfileUpdateDTO) (model.Profile, error)

	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}
