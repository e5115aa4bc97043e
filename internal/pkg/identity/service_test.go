package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/app/repository/memory"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/utils"
)

func testConfig() *Config {
	return &Config{
		JWTSecret:       []byte("test-secret"),
		Issuer:          "civicdash-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos := memory.New().Repositories()
	return NewService(repos.Profile, repos.ProviderAccount, NewMemoryRefreshStore(), testConfig()), repos
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterInput{
		Email:    "Jane@City.example",
		Password: "hunter22",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_CITIZEN, profile.Role)
	assert.Equal(t, "jane@city.example", profile.Email)
	assert.Equal(t, utils.GravatarURL("jane@city.example", 0), profile.AvatarURL)

	session, err := svc.Authenticate(ctx, "jane@city.example", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, profile.ID, session.Profile.ID)

	identity, err := svc.VerifyToken(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.True(t, identity.IsLoggedIn)
	assert.Equal(t, profile.ID, identity.UserID)

	_, err = svc.Authenticate(ctx, "jane@city.example", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody@city.example", "hunter22")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRegisterRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       RegisterInput
		allowAdm bool
		want     error
	}{
		{name: "bad email", in: RegisterInput{Email: "nope", Password: "secret1", FullName: "Al"}, want: apperror.ErrValidation},
		{name: "short password", in: RegisterInput{Email: "a@b.example", Password: "123", FullName: "Al"}, want: apperror.ErrValidation},
		{name: "official without department", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Role: models.ROLE_OFFICIAL}, want: apperror.ErrValidation},
		{name: "citizen with department", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Department: "transport"}, want: apperror.ErrValidation},
		{name: "unknown role", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Role: "mayor"}, want: apperror.ErrValidation},
		{name: "admin signup disabled", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Role: models.ROLE_ADMIN}, want: apperror.ErrForbidden},
		{name: "admin signup enabled", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Role: models.ROLE_ADMIN}, allowAdm: true},
		{name: "official", in: RegisterInput{Email: "a@b.example", Password: "secret1", FullName: "Al", Role: models.ROLE_OFFICIAL, Department: "Sanitation"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, _ := newTestService(t)
			svc.cfg.AllowAdminSignup = tc.allowAdm

			_, err := svc.Register(context.Background(), tc.in)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := RegisterInput{Email: "dup@city.example", Password: "secret1", FullName: "Dup"}

	_, err := svc.Register(ctx, in)
	require.NoError(t, err)
	in.Email = "DUP@city.example"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "r@city.example", Password: "secret1", FullName: "Rita"})
	require.NoError(t, err)
	session, err := svc.Authenticate(ctx, "r@city.example", "secret1")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "a refresh token is single use")

	require.NoError(t, svc.Logout(ctx, next.RefreshToken))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "v@city.example", Password: "secret1", FullName: "Vic"})
	require.NoError(t, err)
	session, err := svc.Authenticate(ctx, "v@city.example", "secret1")
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, session.AccessToken+"x")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: models.ROLE_ADMIN,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Profile.ID,
			Issuer:    "civicdash-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.VerifyToken(ctx, forged)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.VerifyToken(ctx, session.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized, "expired tokens are rejected")
}

func TestVerifyTokenReflectsRoleChanges(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	p, err := svc.Register(ctx, RegisterInput{Email: "promo@city.example", Password: "secret1", FullName: "Promo"})
	require.NoError(t, err)
	session, err := svc.Authenticate(ctx, "promo@city.example", "secret1")
	require.NoError(t, err)

	require.NoError(t, repos.Profile.UpdateRole(ctx, p.ID, models.ROLE_OFFICIAL, "utilities"))

	identity, err := svc.VerifyToken(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.True(t, identity.IsOfficial())
	assert.Equal(t, "utilities", identity.Department)
}

func TestCompleteOAuth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	existing, err := svc.Register(ctx, RegisterInput{Email: "linked@city.example", Password: "secret1", FullName: "Linked"})
	require.NoError(t, err)

	session, err := svc.CompleteOAuth(ctx, OAuthUser{Provider: "google", UserID: "g-1", Email: "linked@city.example"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, session.Profile.ID, "same email links to the existing profile")

	again, err := svc.CompleteOAuth(ctx, OAuthUser{Provider: "google", UserID: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.Profile.ID, "provider link is reused")

	fresh, err := svc.CompleteOAuth(ctx, OAuthUser{Provider: "github", UserID: "42", NickName: "octo"})
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_CITIZEN, fresh.Profile.Role)
	assert.Equal(t, "octo", fresh.Profile.FullName)
	assert.Equal(t, "github_42@github.oauth.local", fresh.Profile.Email)
	assert.False(t, fresh.Profile.CheckPassword(""), "oauth profiles have no password")

	_, err = svc.CompleteOAuth(ctx, OAuthUser{Provider: "github"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
