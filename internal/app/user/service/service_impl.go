package service

import (
	"context"
	"errors"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/validate"
	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/jwt"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	repo "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/repo"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/config"
	logx "github.com/Miraines/MoonyAndStarry/user-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/metrics"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type userService struct {
	userRepo    repo.UserRepo
	profileRepo repo.ProfileRepo
	cache       repo.ProfileCache
	jwtUtil     jwt.JWTUtil
	v           *validate.Validator
	cfg         *config.Config
	log         *zap.Logger
}

var errNoSigningKeys = errors.New("token signing keys not configured")

// noTokens stands in for the JWT util in commands started without keys.
type noTokens struct{}

func (noTokens) GenerateAccessToken(uuid.UUID, []string) (string, time.Time, string, error) {
	return "", time.Time{}, "", errNoSigningKeys
}
func (noTokens) GenerateRefreshToken(uuid.UUID) (string, time.Time, string, error) {
	return "", time.Time{}, "", errNoSigningKeys
}
func (noTokens) ValidateAccessToken(string) (jwt.AccessClaims, error) {
	return jwt.AccessClaims{}, customErrors.WrapInternal(errNoSigningKeys, "ValidateAccessToken")
}
func (noTokens) ValidateRefreshToken(string) (jwt.RefreshClaims, error) {
	return jwt.RefreshClaims{}, customErrors.WrapInternal(errNoSigningKeys, "ValidateRefreshToken")
}

// New wires the service. cache may be nil, reads then always hit the store.
// jm may be nil for store-only use; token operations then fail as internal.
func New(
	ur repo.UserRepo,
	pr repo.ProfileRepo,
	cache repo.ProfileCache,
	jm jwt.JWTUtil,
	v *validate.Validator,
	cfg *config.Config,
	log *zap.Logger,
) Service {
	if log == nil {
		log = zap.NewNop()
	}
	if jm == nil {
		jm = noTokens{}
	}
	return &userService{
		userRepo: ur, profileRepo: pr, cache: cache, jwtUtil: jm, v: v, cfg: cfg, log: log,
	}
}

func (s *userService) Register(ctx context.Context, in dto.RegisterDTO) (model.User, error) {
	user, err := s.createUser(ctx, in, false)
	metrics.Registrations.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()), logx.Email(user.Email))
	return user, nil
}

func (s *userService) CreateSuperuser(ctx context.Context, in dto.RegisterDTO) (model.User, error) {
	user, err := s.createUser(ctx, in, true)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("superuser created", zap.String("user_id", user.ID.String()), logx.Email(user.Email))
	return user, nil
}

func (s *userService) createUser(ctx context.Context, in dto.RegisterDTO, super bool) (model.User, error) {
	clean, err := s.v.Registration(ctx, in)
	if err != nil {
		return model.User{}, err
	}

	passwordHash, err := argon2id.CreateHash(clean.Password+s.cfg.PasswordPepper, argonParams)
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        clean.Email,
		Username:     clean.Username,
		FirstName:    clean.FirstName,
		LastName:     clean.LastName,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
	}
	if _, err = s.userRepo.CreateUser(ctx, user); err != nil {
		// a lost race with a concurrent registration still reads as a field error
		if _, ok := customErrors.AsValidation(err); ok || customErrors.IsAlreadyExists(err) {
			return model.User{}, err
		}
		return model.User{}, customErrors.WrapInternal(err, "Register")
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error) {
	pair, err := s.login(ctx, in)
	metrics.Logins.WithLabelValues(metrics.Status(err)).Inc()
	return pair, err
}

func (s *userService) login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error) {
	in.Email = validate.NormalizeEmail(in.Email)
	if err := s.v.Struct(in); err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := argon2id.ComparePasswordAndHash(in.Password+s.cfg.PasswordPepper, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok || !user.IsActive {
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	return s.IssueTokens(ctx, user)
}

func (s *userService) Promote(ctx context.Context, email string) (model.User, error) {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return model.User{}, customErrors.NewInvalidArgument("email is required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if customErrors.IsNotFound(err) {
			return model.User{}, err
		}
		return model.User{}, customErrors.WrapInternal(err, "Promote")
	}

	user.IsStaff, user.IsSuperuser, user.IsActive = true, true, true
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return model.User{}, customErrors.WrapInternal(err, "UpdateUser")
	}
	s.invalidate(ctx, user.ID)
	s.log.Info("user promoted", zap.String("user_id", user.ID.String()))

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) IssueTokens(_ context.Context, user model.User) (model.TokenPair, error) {
	at, atExp, _, err := s.jwtUtil.GenerateAccessToken(user.ID, user.Roles())
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, _, err := s.jwtUtil.GenerateRefreshToken(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	now := time.Now()
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		UserId:       user.ID,
	}, nil
}

func (s *userService) Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error) {
	if err := s.v.Struct(in); err != nil {
		return model.TokenPair{}, err
	}

	claims, err := s.jwtUtil.ValidateRefreshToken(in.Refresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.subject(ctx, claims.Subject)
	if err != nil {
		return model.TokenPair{}, err
	}
	return s.IssueTokens(ctx, user)
}

func (s *userService) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil {
		return model.User{}, err
	}
	return s.subject(ctx, claims.Subject)
}

// subject loads the active user a validated token was issued to.
func (s *userService) subject(ctx context.Context, sub string) (model.User, error) {
	uid, err := uuid.Parse(sub)
	if err != nil {
		return model.User{}, customErrors.ErrTokenMalformed
	}

	user, err := s.userRepo.GetUserByID(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.ErrUnknownSubject
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "Authenticate")
	}
	if !user.IsActive {
		return model.User{}, customErrors.ErrUnknownSubject
	}
	return user, nil
}

// GetProfile reads through the cache. A user without a profile row gets a
// nil Profile, nothing is written to the store.
func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (model.UserWithProfile, error) {
	if view, ok := s.cachedProfile(ctx, userID); ok {
		return view, nil
	}
	// read before the store so an update committed meanwhile voids the fill
	gen, fill := s.cacheGeneration(ctx, userID)

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if customErrors.IsNotFound(err) {
			return model.UserWithProfile{}, err
		}
		return model.UserWithProfile{}, customErrors.WrapInternal(err, "GetProfile")
	}

	view := model.UserWithProfile{User: user}
	profile, err := s.profileRepo.GetProfileByUserID(ctx, userID)
	switch {
	case err == nil:
		view.Profile = &profile
	case !customErrors.IsNotFound(err):
		return model.UserWithProfile{}, customErrors.WrapInternal(err, "GetProfile")
	}

	if fill {
		stored, err := s.cache.Set(ctx, view, gen, s.cfg.ProfileCacheTTL)
		switch {
		case err != nil:
			s.log.Warn("profile cache set failed", zap.Error(err))
		case !stored:
			s.log.Debug("profile cache fill skipped, invalidated during read", zap.String("user_id", userID.String()))
		}
	}
	view.User.PasswordHash = ""
	return view, nil
}

func (s *userService) cachedProfile(ctx context.Context, userID uuid.UUID) (model.UserWithProfile, bool) {
	if s.cache == nil {
		return model.UserWithProfile{}, false
	}
	view, ok, err := s.cache.Get(ctx, userID)
	switch {
	case err != nil:
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("profile cache get failed", zap.Error(err))
		return model.UserWithProfile{}, false
	case !ok:
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
		return model.UserWithProfile{}, false
	}
	metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
	return view, true
}

func (s *userService) cacheGeneration(ctx context.Context, userID uuid.UUID) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, userID)
	if err != nil {
		s.log.Warn("profile cache generation failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in dto.ProfileUpdateDTO) (model.Profile, error) {
	profile, err := s.updateProfile(ctx, userID, in)
	metrics.ProfileUpdates.WithLabelValues(metrics.Status(err)).Inc()
	return profile, err
}

func (s *userService) updateProfile(ctx context.Context, userID uuid.UUID, in dto.ProfileUpdateDTO) (model.Profile, error) {
	patch, err := s.v.ProfileUpdate(in)
	if err != nil {
		return model.Profile{}, err
	}

	profile, err := s.profileRepo.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "UpdateProfile")
	}
	s.invalidate(ctx, userID)
	return profile, nil
}

func (s *userService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		if customErrors.IsNotFound(err) {
			return err
		}
		return customErrors.WrapInternal(err, "DeleteAccount")
	}
	s.invalidate(ctx, userID)
	s.log.Info("account deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("profile cache invalidate failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
