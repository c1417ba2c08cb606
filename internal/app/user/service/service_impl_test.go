package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/jwt"
	appsvc "github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/service"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/validate"
	userErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type userRepoStub struct {
	users     map[uuid.UUID]model.User
	profiles  *profileRepoStub
	createErr error
}

func (u *userRepoStub) CreateUser(_ context.Context, m model.User) (uuid.UUID, error) {
	if u.createErr != nil {
		return uuid.Nil, u.createErr
	}
	u.users[m.ID] = m
	u.profiles.profiles[m.ID] = model.Profile{ID: uuid.New(), UserID: m.ID}
	return m.ID, nil
}
func (u *userRepoStub) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	for _, v := range u.users {
		if v.Email == email {
			return v, nil
		}
	}
	return model.User{}, userErrors.ErrNotFound
}
func (u *userRepoStub) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	for _, v := range u.users {
		if v.Username == username {
			return v, nil
		}
	}
	return model.User{}, userErrors.ErrNotFound
}
func (u *userRepoStub) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	v, ok := u.users[id]
	if !ok {
		return model.User{}, userErrors.ErrNotFound
	}
	return v, nil
}
func (u *userRepoStub) UpdateUser(_ context.Context, m model.User) error {
	u.users[m.ID] = m
	return nil
}
func (u *userRepoStub) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := u.users[id]; !ok {
		return userErrors.ErrNotFound
	}
	delete(u.users, id)
	delete(u.profiles.profiles, id)
	return nil
}

type profileRepoStub struct {
	profiles map[uuid.UUID]model.Profile
	reads    int
}

func (p *profileRepoStub) GetProfileByUserID(_ context.Context, userID uuid.UUID) (model.Profile, error) {
	p.reads++
	v, ok := p.profiles[userID]
	if !ok {
		return model.Profile{}, userErrors.ErrNotFound
	}
	return v, nil
}
func (p *profileRepoStub) GetOrCreateProfile(_ context.Context, userID uuid.UUID) (model.Profile, error) {
	v, ok := p.profiles[userID]
	if !ok {
		v = model.Profile{ID: uuid.New(), UserID: userID}
		p.profiles[userID] = v
	}
	return v, nil
}
func (p *profileRepoStub) UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (model.Profile, error) {
	v, _ := p.GetOrCreateProfile(ctx, userID)
	patch.Apply(&v)
	v.UpdatedAt = time.Now()
	p.profiles[userID] = v
	return v, nil
}

type cacheStub struct {
	views       map[uuid.UUID]model.UserWithProfile
	gens        map[uuid.UUID]int64
	err         error
	invalidated []uuid.UUID
}

func (c *cacheStub) Get(_ context.Context, userID uuid.UUID) (model.UserWithProfile, bool, error) {
	if c.err != nil {
		return model.UserWithProfile{}, false, c.err
	}
	v, ok := c.views[userID]
	return v, ok, nil
}
func (c *cacheStub) Generation(_ context.Context, userID uuid.UUID) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.gens[userID], nil
}
func (c *cacheStub) Set(_ context.Context, view model.UserWithProfile, gen int64, _ time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.gens[view.User.ID] != gen {
		return false, nil
	}
	c.views[view.User.ID] = view
	return true, nil
}
func (c *cacheStub) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.invalidated = append(c.invalidated, userID)
	c.gens[userID]++
	delete(c.views, userID)
	return c.err
}

// gatedProfiles parks GetProfileByUserID after the store read until
// release is closed.
type gatedProfiles struct {
	*profileRepoStub
	read    chan struct{}
	release chan struct{}
}

func (g *gatedProfiles) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	p, err := g.profileRepoStub.GetProfileByUserID(ctx, userID)
	close(g.read)
	<-g.release
	return p, err
}

/* ───────────────────────────── helpers ───────────────────────────── */

type fixture struct {
	svc      appsvc.Service
	util     *jwt.JwtUtilImpl
	users    *userRepoStub
	profiles *profileRepoStub
	cache    *cacheStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		JWTPrivateKeyPath: "../jwt/testdata/priv.pem",
		JWTPublicKeyPath:  "../jwt/testdata/pub.pem",
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   time.Hour,
		Issuer:            "test",
		Audience:          "test",
		PasswordPepper:    "pepper",
		ProfileCacheTTL:   time.Minute,
	}
	util, err := jwt.NewJWTUtil(cfg)
	require.NoError(t, err)

	pr := &profileRepoStub{profiles: map[uuid.UUID]model.Profile{}}
	ur := &userRepoStub{users: map[uuid.UUID]model.User{}, profiles: pr}
	cache := &cacheStub{views: map[uuid.UUID]model.UserWithProfile{}, gens: map[uuid.UUID]int64{}}
	v := validate.New(validate.DefaultPasswordPolicy(), ur)

	return &fixture{
		svc:      appsvc.New(ur, pr, cache, util, v, cfg, nil),
		util:     util,
		users:    ur,
		profiles: pr,
		cache:    cache,
	}
}

func registration(email, username string) dto.RegisterDTO {
	return dto.RegisterDTO{
		Email:           email,
		Username:        username,
		FirstName:       "New",
		LastName:        "User",
		Password:        "newpass123",
		PasswordConfirm: "newpass123",
	}
}

/* ───────────────────────────── tests ───────────────────────────── */

func TestUserService_RegisterLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, registration("newuser@example.com", "newuser"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, "newpass123", user.PasswordHash)

	_, ok := f.profiles.profiles[user.ID]
	assert.True(t, ok, "profile created with the user")

	pair, err := f.svc.Login(ctx, dto.LoginDTO{Email: "newuser@example.com", Password: "newpass123"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, user.ID, pair.UserId)
	assert.InDelta(t, time.Minute.Seconds(), pair.AccessTTL.Seconds(), 2)
}

func TestUserService_RegisterInvalid(t *testing.T) {
	f := newFixture(t)
	in := registration("x@example.com", "x")
	in.PasswordConfirm = "different123"

	_, err := f.svc.Register(context.Background(), in)
	require.Error(t, err)
	require.True(t, userErrors.IsInvalidArgument(err))
	assert.Empty(t, f.users.users)
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registration("dup@example.com", "dup"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registration("dup@example.com", "other"))
	ve, ok := userErrors.AsValidation(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(userErrors.CodeDuplicateEmail))
	assert.Len(t, f.users.users, 1)
}

func TestUserService_RegisterRaceSurfacesFieldError(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = userErrors.NewFieldError("username", userErrors.CodeDuplicateUsername, "taken")

	_, err := f.svc.Register(context.Background(), registration("race@example.com", "race"))
	ve, ok := userErrors.AsValidation(err)
	require.True(t, ok)
	assert.True(t, ve.Has("username"))
}

func TestUserService_RegisterStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = errors.New("connection reset")

	_, err := f.svc.Register(context.Background(), registration("down@example.com", "down"))
	require.Error(t, err)
	assert.True(t, userErrors.IsInternal(err))
}

func TestUserService_CreateSuperuser(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.CreateSuperuser(context.Background(), registration("admin@example.com", "admin"))
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)

	pair, err := f.svc.IssueTokens(context.Background(), user)
	require.NoError(t, err)
	claims, err := f.util.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user", "staff", "superuser"}, claims.Roles)
}

func TestUserService_Promote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("staff@example.com", "staff"))
	require.NoError(t, err)
	_, err = f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	promoted, err := f.svc.Promote(ctx, " staff@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, promoted.ID)
	assert.True(t, f.users.users[user.ID].IsStaff)
	assert.True(t, f.users.users[user.ID].IsSuperuser)
	assert.NotEmpty(t, f.users.users[user.ID].PasswordHash)
	assert.Empty(t, promoted.PasswordHash)
	assert.Contains(t, f.cache.invalidated, user.ID)

	_, err = f.svc.Promote(ctx, "ghost@example.com")
	assert.True(t, userErrors.IsNotFound(err))
	_, err = f.svc.Promote(ctx, "  ")
	assert.True(t, userErrors.IsInvalidArgument(err))
}

func TestUserService_WithoutSigningKeys(t *testing.T) {
	pr := &profileRepoStub{profiles: map[uuid.UUID]model.Profile{}}
	ur := &userRepoStub{users: map[uuid.UUID]model.User{}, profiles: pr}
	cfg := &config.Config{PasswordPepper: "pepper"}
	svc := appsvc.New(ur, pr, nil, nil, validate.New(validate.DefaultPasswordPolicy(), ur), cfg, nil)
	ctx := context.Background()

	user, err := svc.CreateSuperuser(ctx, registration("keyless@example.com", "keyless"))
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)

	_, err = svc.IssueTokens(ctx, user)
	assert.True(t, userErrors.IsInternal(err))
	_, err = svc.Authenticate(ctx, "any")
	assert.True(t, userErrors.IsInternal(err))
}

func TestUserService_LoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("login@example.com", "login"))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "login@example.com", Password: "wrongpass1"})
	assert.True(t, userErrors.IsInvalidCredentials(err))

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "none@example.com", Password: "p"})
	assert.True(t, userErrors.IsInvalidCredentials(err))

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "", Password: ""})
	assert.True(t, userErrors.IsInvalidArgument(err))

	user.IsActive = false
	f.users.users[user.ID] = user
	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "login@example.com", Password: "newpass123"})
	assert.True(t, userErrors.IsInvalidCredentials(err))
}

func TestUserService_AuthenticateAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("auth@example.com", "auth"))
	require.NoError(t, err)
	pair, err := f.svc.IssueTokens(ctx, user)
	require.NoError(t, err)

	got, err := f.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	refreshed, err := f.svc.Refresh(ctx, dto.RefreshDTO{Refresh: pair.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.UserId)

	// token types are not interchangeable
	_, err = f.svc.Authenticate(ctx, pair.RefreshToken)
	assert.True(t, userErrors.IsInvalidToken(err))
	_, err = f.svc.Refresh(ctx, dto.RefreshDTO{Refresh: pair.AccessToken})
	assert.True(t, userErrors.IsInvalidToken(err))
}

func TestUserService_AuthenticateInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "bad")
	assert.ErrorIs(t, err, userErrors.ErrTokenMalformed)

	_, err = f.svc.Refresh(ctx, dto.RefreshDTO{})
	assert.True(t, userErrors.IsInvalidArgument(err))

	ghost, _, _, err := f.util.GenerateAccessToken(uuid.New(), []string{"user"})
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, userErrors.ErrUnknownSubject)
}

func TestUserService_GetProfileReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("cache@example.com", "cache"))
	require.NoError(t, err)

	view, err := f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Profile)
	assert.Empty(t, view.User.PasswordHash)
	assert.Equal(t, 1, f.profiles.reads)

	_, err = f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.profiles.reads, "second read served from cache")
}

func TestUserService_GetProfileWithoutRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("bare@example.com", "bare"))
	require.NoError(t, err)
	delete(f.profiles.profiles, user.ID)

	view, err := f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Profile)
	_, created := f.profiles.profiles[user.ID]
	assert.False(t, created, "reads do not create profiles")
}

func TestUserService_CacheFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("flaky@example.com", "flaky"))
	require.NoError(t, err)
	f.cache.err = errors.New("redis down")

	view, err := f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, view.User.ID)

	_, err = f.svc.UpdateProfile(ctx, user.ID, dto.ProfileUpdateDTO{Phone: dto.Some("+1")})
	require.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("upd@example.com", "upd"))
	require.NoError(t, err)
	_, err = f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	p, err := f.svc.UpdateProfile(ctx, user.ID, dto.ProfileUpdateDTO{
		Phone:   dto.Some("+1234567890"),
		Address: dto.Some("123 Test St"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+1234567890", p.Phone)
	assert.Contains(t, f.cache.invalidated, user.ID)

	view, err := f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "123 Test St", view.Profile.Address)

	_, err = f.svc.UpdateProfile(ctx, user.ID, dto.ProfileUpdateDTO{DateOfBirth: dto.Some("01/01/1990")})
	assert.True(t, userErrors.IsInvalidArgument(err))
}

func TestUserService_UpdateDuringReadIsNotOverwritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("race@example.com", "race"))
	require.NoError(t, err)

	gated := &gatedProfiles{
		profileRepoStub: f.profiles,
		read:            make(chan struct{}),
		release:         make(chan struct{}),
	}
	v := validate.New(validate.DefaultPasswordPolicy(), f.users)
	cfg := &config.Config{ProfileCacheTTL: time.Minute}
	reader := appsvc.New(f.users, gated, f.cache, f.util, v, cfg, nil)
	writer := appsvc.New(f.users, f.profiles, f.cache, f.util, v, cfg, nil)

	done := make(chan error, 1)
	go func() {
		_, err := reader.GetProfile(ctx, user.ID)
		done <- err
	}()

	<-gated.read
	_, err = writer.UpdateProfile(ctx, user.ID, dto.ProfileUpdateDTO{Phone: dto.Some("+1111111111")})
	require.NoError(t, err)
	close(gated.release)
	require.NoError(t, <-done)

	view, err := writer.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Profile)
	assert.Equal(t, "+1111111111", view.Profile.Phone)
}

func TestUserService_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, registration("bye@example.com", "bye"))
	require.NoError(t, err)
	_, err = f.svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, user.ID))
	assert.Empty(t, f.users.users)
	assert.Empty(t, f.profiles.profiles)
	assert.Empty(t, f.cache.views)

	assert.True(t, userErrors.IsNotFound(f.svc.DeleteAccount(ctx, user.ID)))
}
