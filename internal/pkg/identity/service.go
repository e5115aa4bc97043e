// Package identity issues and verifies credentials. The core services only
// ever see the usercontext.UserContext it resolves.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
	"github.com/smartcity/civicdash/internal/pkg/utils"
)

// Session is what a successful login hands back to the client.
type Session struct {
	Profile      *models.Profile `json:"user"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

type RegisterInput struct {
	Email      string `json:"email" validate:"required,email,max=200"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	FullName   string `json:"full_name" validate:"required,min=2,max=150"`
	Role       string `json:"role" validate:"omitempty,oneof=citizen department_official admin"`
	Department string `json:"department"`
	Phone      string `json:"phone" validate:"max=32"`
}

// OAuthUser is the provider-neutral result of an OAuth login.
type OAuthUser struct {
	Provider  string
	UserID    string
	Email     string
	Name      string
	NickName  string
	AvatarURL string
}

type Service struct {
	profiles repository.ProfileRepository
	accounts repository.ProviderAccountRepository
	refresh  RefreshStore
	cfg      *Config
	validate *validator.Validate
	now      func() time.Time
}

func NewService(profiles repository.ProfileRepository, accounts repository.ProviderAccountRepository, refresh RefreshStore, cfg *Config) *Service {
	return &Service{
		profiles: profiles,
		accounts: accounts,
		refresh:  refresh,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Service) Config() *Config {
	return s.cfg
}

// Register creates a profile. Admin accounts can only be self-registered when
// ALLOW_ADMIN_SIGNUP is on.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Department = strings.ToLower(strings.TrimSpace(in.Department))
	if in.Role == "" {
		in.Role = models.ROLE_CITIZEN
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.Validation("%s", describe(err))
	}
	if err := models.ValidateRoleDepartment(in.Role, in.Department); err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}
	if in.Role == models.ROLE_ADMIN && !s.cfg.AllowAdminSignup {
		return nil, apperror.Forbidden("admin accounts cannot be self-registered")
	}

	if _, err := s.profiles.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store("check email", err)
	}

	profile, err := models.NewProfile(in.FullName, in.Email, in.Password, in.Role, in.Department)
	if err != nil {
		return nil, apperror.Validation("%s", describe(err))
	}
	profile.Phone = in.Phone
	profile.AvatarURL = utils.GravatarURL(profile.Email, 0)

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("an account with this email already exists")
		}
		return nil, apperror.Store("create profile", err)
	}
	log.Infof("[Identity] Registered %s as %s", profile.ID, profile.Role)
	return profile, nil
}

// Authenticate checks email and password and opens a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, apperror.Store("load profile", err)
	}
	if !profile.CheckPassword(password) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	return s.issue(ctx, profile)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh token is spent.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperror.Unauthorized("refresh token required")
	}
	profileID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return nil, apperror.Unauthorized("refresh token is invalid or expired")
		}
		return nil, apperror.Store("consume refresh token", err)
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, apperror.Store("load profile", err)
	}
	return s.issue(ctx, profile)
}

// Logout revokes the refresh token. Access tokens expire on their own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refresh.Delete(ctx, refreshToken); err != nil {
		return apperror.Store("revoke refresh token", err)
	}
	return nil
}

// VerifyToken resolves an access token to the caller's identity. The profile
// is reloaded so role changes take effect before the token expires.
func (s *Service) VerifyToken(ctx context.Context, token string) (usercontext.UserContext, error) {
	claims, err := s.parseAccessToken(token)
	if err != nil {
		return usercontext.UserContext{}, apperror.Unauthorized("invalid or expired token")
	}
	profile, err := s.profiles.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usercontext.UserContext{}, apperror.Unauthorized("account no longer exists")
		}
		return usercontext.UserContext{}, apperror.Store("load profile", err)
	}
	return usercontext.FromProfile(profile), nil
}

// CompleteOAuth logs in a provider identity. Unknown identities are linked to
// the profile with the same email, or become new citizen profiles.
func (s *Service) CompleteOAuth(ctx context.Context, u OAuthUser) (*Session, error) {
	if u.Provider == "" || u.UserID == "" {
		return nil, apperror.Validation("provider identity is incomplete")
	}

	account, err := s.accounts.GetByProviderUserID(ctx, u.Provider, u.UserID)
	if err == nil {
		profile, err := s.profiles.GetByID(ctx, account.ProfileID)
		if err != nil {
			return nil, apperror.Store("load linked profile", err)
		}
		return s.issue(ctx, profile)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store("load provider account", err)
	}

	var profile *models.Profile
	if u.Email != "" {
		profile, err = s.profiles.GetByEmail(ctx, u.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Store("load profile", err)
		}
	}
	if profile == nil {
		email := u.Email
		if email == "" {
			email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
		}
		profile = &models.Profile{
			ID:        models.NewID(),
			FullName:  firstNonEmpty(u.Name, u.NickName, "Citizen"),
			Email:     models.NormalizeEmail(email),
			Role:      models.ROLE_CITIZEN,
			AvatarURL: utils.AvatarOrGravatar(u.AvatarURL, email),
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, apperror.Store("create profile", err)
		}
	}

	link := &models.ProviderAccount{
		ID:             models.NewID(),
		ProfileID:      profile.ID,
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
	}
	if err := s.accounts.Create(ctx, link); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperror.Store("link provider", err)
	}
	return s.issue(ctx, profile)
}

func (s *Service) issue(ctx context.Context, profile *models.Profile) (*Session, error) {
	now := s.now()
	access, expires, err := s.signAccessToken(profile, now)
	if err != nil {
		return nil, apperror.Store("issue access token", err)
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, apperror.Store("issue refresh token", err)
	}
	if err := s.refresh.Save(ctx, refresh, profile.ID, s.cfg.RefreshTokenTTL); err != nil {
		return nil, apperror.Store("store refresh token", err)
	}
	return &Session{Profile: profile, AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		return "a valid email address is required"
	case "Password":
		return "password must be between 6 and 72 characters"
	case "FullName":
		return "full name must be between 2 and 150 characters"
	case "Role":
		return "role must be citizen, department_official or admin"
	default:
		return strings.ToLower(fe.Field()) + " is invalid"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
