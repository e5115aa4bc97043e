// Package accounts covers profile lookup and administration.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/pagination"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

const (
	minSearchLength = 2
	searchLimit     = 10
	recentWindow    = 7 * 24 * time.Hour
)

type UserPage struct {
	Users      []models.Profile      `json:"users"`
	Pagination pagination.Pagination `json:"pagination"`
}

type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	Admins        int64 `json:"admins"`
	Officials     int64 `json:"officials"`
	Citizens      int64 `json:"citizens"`
	RecentSignups int64 `json:"recentSignups"`
}

type Service struct {
	profiles repository.ProfileRepository
	now      func() time.Time
}

func NewService(profiles repository.ProfileRepository) *Service {
	return &Service{profiles: profiles, now: time.Now}
}

// Search finds other profiles by name or email. Queries shorter than two
// characters return nothing.
func (s *Service) Search(ctx context.Context, query string, caller usercontext.UserContext) ([]models.PublicProfile, error) {
	query = strings.TrimSpace(query)
	out := []models.PublicProfile{}
	if len([]rune(query)) < minSearchLength {
		return out, nil
	}
	found, err := s.profiles.Search(ctx, query, caller.UserID, searchLimit)
	if err != nil {
		return nil, apperror.Store("search users", err)
	}
	for i := range found {
		out = append(out, found[i].Public())
	}
	return out, nil
}

// ListUsers pages through all profiles, newest first.
func (s *Service) ListUsers(ctx context.Context, page, size int) (*UserPage, error) {
	page, size = pagination.Normalize(page, size)
	users, err := s.profiles.List(ctx, pagination.Offset(page, size), size)
	if err != nil {
		return nil, apperror.Store("list users", err)
	}
	total, err := s.profiles.Count(ctx)
	if err != nil {
		return nil, apperror.Store("count users", err)
	}
	if users == nil {
		users = []models.Profile{}
	}
	return &UserPage{Users: users, Pagination: pagination.New(page, size, total)}, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byRole, err := s.profiles.CountByRole(ctx)
	if err != nil {
		return nil, apperror.Store("count users by role", err)
	}
	recent, err := s.profiles.CountCreatedSince(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, apperror.Store("count recent users", err)
	}
	st := &Stats{
		Admins:        byRole[models.ROLE_ADMIN],
		Officials:     byRole[models.ROLE_OFFICIAL],
		Citizens:      byRole[models.ROLE_CITIZEN],
		RecentSignups: recent,
	}
	for _, n := range byRole {
		st.TotalUsers += n
	}
	return st, nil
}

// ChangeRole sets a profile's role. Officials need a department, other roles
// drop theirs, and admins cannot demote themselves.
func (s *Service) ChangeRole(ctx context.Context, profileID, role, department string, actor usercontext.UserContext) (*models.Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	role = strings.TrimSpace(role)
	department = strings.ToLower(strings.TrimSpace(department))
	if role != models.ROLE_OFFICIAL {
		department = ""
	}
	if err := models.ValidateRoleDepartment(role, department); err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}
	if profileID == actor.UserID && role != models.ROLE_ADMIN {
		return nil, apperror.Validation("admins cannot remove their own admin role")
	}

	if err := s.profiles.UpdateRole(ctx, profileID, role, department); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user")
		}
		return nil, apperror.Store("update role", err)
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, apperror.Store("reload profile", err)
	}
	log.Infof("[Accounts] %s set role of %s to %s", actor.UserID, profileID, role)
	return profile, nil
}
