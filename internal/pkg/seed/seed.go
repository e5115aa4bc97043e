// Package seed loads demo accounts and issues from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/issues"
	"github.com/smartcity/civicdash/internal/pkg/pagination"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

type User struct {
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	FullName   string `yaml:"full_name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Phone      string `yaml:"phone"`
}

// Issue is reported by Reporter and then walked forward to Status.
// Any status past pending needs an Assignee.
type Issue struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Priority    string `yaml:"priority"`
	Department  string `yaml:"department"`
	Address     string `yaml:"address"`
	Reporter    string `yaml:"reporter"`
	Assignee    string `yaml:"assignee"`
	Status      string `yaml:"status"`
}

type File struct {
	Users  []User  `yaml:"users"`
	Issues []Issue `yaml:"issues"`
}

// Result counts what Apply wrote.
type Result struct {
	UsersCreated   int
	UsersExisting  int
	Issues         int
	IssuesExisting int
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, is := range f.Issues {
		if is.Reporter == "" {
			return nil, fmt.Errorf("issue %d (%q): reporter is required", i, is.Title)
		}
		if is.Status != "" {
			status, ok := models.ParseStatus(is.Status)
			if !ok {
				return nil, fmt.Errorf("issue %d (%q): unknown status %q", i, is.Title, is.Status)
			}
			if status != models.StatusPending && is.Assignee == "" {
				return nil, fmt.Errorf("issue %d (%q): status %s needs an assignee", i, is.Title, status)
			}
		}
	}
	return &f, nil
}

// Seeder writes seed data through the regular services so every rule applies.
type Seeder struct {
	Identity *identity.Service
	Issues   *issues.Service
	Profiles repository.ProfileRepository
}

// Apply creates missing users and issues. Users are matched by e-mail and
// issues by reporter plus title, so running it twice writes nothing new.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}
	for _, u := range f.Users {
		_, err := s.Identity.Register(ctx, identity.RegisterInput{
			Email:      u.Email,
			Password:   u.Password,
			FullName:   u.FullName,
			Role:       u.Role,
			Department: u.Department,
			Phone:      u.Phone,
		})
		switch {
		case err == nil:
			res.UsersCreated++
		case errors.Is(err, apperror.ErrConflict):
			res.UsersExisting++
		default:
			return res, fmt.Errorf("user %s: %w", u.Email, err)
		}
	}

	operator := usercontext.UserContext{UserID: "seed", Role: models.ROLE_ADMIN, IsLoggedIn: true}
	for _, is := range f.Issues {
		created, err := s.applyIssue(ctx, is, operator)
		if err != nil {
			return res, fmt.Errorf("issue %q: %w", is.Title, err)
		}
		if created {
			res.Issues++
		} else {
			res.IssuesExisting++
		}
	}
	log.Infof("[Seed] %d users created, %d already present, %d issues created, %d already present",
		res.UsersCreated, res.UsersExisting, res.Issues, res.IssuesExisting)
	return res, nil
}

func (s *Seeder) applyIssue(ctx context.Context, is Issue, operator usercontext.UserContext) (bool, error) {
	reporter, err := s.profile(ctx, is.Reporter)
	if err != nil {
		return false, err
	}
	exists, err := s.reported(ctx, reporter.ID, is.Title)
	if err != nil || exists {
		return false, err
	}
	issue, err := s.Issues.Create(ctx, issues.CreateInput{
		Title:       is.Title,
		Description: is.Description,
		Category:    is.Category,
		Priority:    is.Priority,
		Department:  is.Department,
		Address:     is.Address,
	}, usercontext.FromProfile(reporter))
	if err != nil {
		return false, err
	}

	if is.Assignee == "" {
		return true, nil
	}
	worker, err := s.profile(ctx, is.Assignee)
	if err != nil {
		return false, err
	}
	if issue, err = s.Issues.Assign(ctx, issue.ID, worker.ID, operator); err != nil {
		return false, err
	}

	target := models.StatusAssigned
	if is.Status != "" {
		target, _ = models.ParseStatus(is.Status)
	}
	for issue.Status != target {
		next := issue.Status.Next()
		if next == "" {
			break
		}
		if issue, err = s.Issues.Transition(ctx, issue.ID, string(next), operator); err != nil {
			return false, err
		}
	}
	return true, nil
}

// reported reports whether reporterID already filed an issue titled title.
func (s *Seeder) reported(ctx context.Context, reporterID, title string) (bool, error) {
	title = strings.TrimSpace(title)
	filter := repository.IssueFilter{ReportedBy: reporterID}
	for page := 1; ; page++ {
		res, err := s.Issues.List(ctx, filter, page, pagination.MaxPageSize)
		if err != nil {
			return false, err
		}
		for _, existing := range res.Issues {
			if existing.Title == title {
				return true, nil
			}
		}
		if !res.Pagination.HasNextPage {
			return false, nil
		}
	}
}

func (s *Seeder) profile(ctx context.Context, email string) (*models.Profile, error) {
	p, err := s.Profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no user with e-mail %s", email)
	}
	return p, err
}
