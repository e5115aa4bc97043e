// Package issues implements the issue lifecycle and department assignment.
package issues

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/events"
	"github.com/smartcity/civicdash/internal/pkg/imagestore"
	"github.com/smartcity/civicdash/internal/pkg/pagination"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// ImageCleaner removes an uploaded image whose issue row was never written.
type ImageCleaner interface {
	ScheduleImageDelete(ctx context.Context, key string) error
}

// Page is one page of a filtered issue listing.
type Page struct {
	Issues     []models.Issue        `json:"issues"`
	Pagination pagination.Pagination `json:"pagination"`
}

type Service struct {
	issues   repository.IssueRepository
	profiles repository.ProfileRepository
	images   imagestore.Store
	cleaner  ImageCleaner
	events   events.Publisher
	maxImage int64
	now      func() time.Time
}

type Option func(*Service)

func WithImageStore(store imagestore.Store, maxBytes int64) Option {
	return func(s *Service) {
		s.images = store
		s.maxImage = maxBytes
	}
}

func WithCleaner(c ImageCleaner) Option {
	return func(s *Service) { s.cleaner = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(issues repository.IssueRepository, profiles repository.ProfileRepository, opts ...Option) *Service {
	s := &Service{
		issues:   issues,
		profiles: profiles,
		events:   events.Nop{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create validates the whole input, stores the image if any, then inserts the issue.
func (s *Service) Create(ctx context.Context, in CreateInput, reporter usercontext.UserContext) (*models.Issue, error) {
	if !reporter.IsLoggedIn || reporter.UserID == "" {
		return nil, apperror.Unauthorized("login required")
	}

	n, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var detected imagestore.Detected
	if in.Image != nil {
		if s.images == nil {
			return nil, apperror.Validation("image uploads are not enabled")
		}
		detected, err = imagestore.Validate(in.Image.Data, s.maxImage)
		if err != nil {
			return nil, apperror.Validation("%s", err.Error())
		}
	}

	now := s.timestamp()
	issue := &models.Issue{
		ID:                 models.NewID(),
		Title:              n.title,
		Description:        n.description,
		Category:           n.category,
		Priority:           n.priority,
		Status:             models.StatusPending,
		Address:            n.address,
		Latitude:           n.latitude,
		Longitude:          n.longitude,
		ReportedBy:         reporter.UserID,
		AssignedDepartment: n.department,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if in.Image != nil {
		issue.ImageKey = imagestore.ObjectKey(issue.ID, detected.Extension, now)
		issue.ImageURL, err = s.images.Put(ctx, issue.ImageKey, in.Image.Data, detected.ContentType)
		if err != nil {
			return nil, apperror.Store("upload image", err)
		}
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		if issue.ImageKey != "" {
			s.discardImage(ctx, issue.ImageKey)
		}
		return nil, apperror.Store("create issue", err)
	}

	s.events.IssueChanged(ctx, events.IssueEvent{Action: events.IssueCreated, Issue: *issue, ActorID: reporter.UserID})
	return issue, nil
}

func (s *Service) discardImage(ctx context.Context, key string) {
	if s.cleaner != nil {
		err := s.cleaner.ScheduleImageDelete(ctx, key)
		if err == nil {
			return
		}
		log.Warnf("[Issues] Failed to schedule cleanup of %s: %v", key, err)
	}
	if err := s.images.Delete(ctx, key); err != nil {
		log.Errorf("[Issues] Orphaned image %s left behind: %v", key, err)
	}
}

// Get returns one issue.
func (s *Service) Get(ctx context.Context, issueID string) (*models.Issue, error) {
	if issueID == "" {
		return nil, apperror.Validation("issue id is required")
	}
	return s.load(ctx, issueID)
}

func (s *Service) load(ctx context.Context, issueID string) (*models.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue")
		}
		return nil, apperror.Store("load issue", err)
	}
	return issue, nil
}

// Transition moves an issue one step forward. Moving to the current status
// changes nothing, which keeps repeated resolves from touching resolved_at.
func (s *Service) Transition(ctx context.Context, issueID, rawStatus string, actor usercontext.UserContext) (*models.Issue, error) {
	if !actor.IsLoggedIn {
		return nil, apperror.Unauthorized("login required")
	}
	target, ok := models.ParseStatus(rawStatus)
	if !ok {
		return nil, apperror.Validation("unknown status %q", rawStatus)
	}

	issue, err := s.load(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageDepartment(issue.AssignedDepartment) {
		return nil, apperror.Forbidden("only admins or officials of the issue's department may change its status")
	}
	if target == issue.Status {
		return issue, nil
	}
	if !models.CanTransition(issue.Status, target) {
		return nil, apperror.InvalidTransition(string(issue.Status), string(target))
	}

	previous := issue.Status
	now := s.timestamp()
	fields := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if (target == models.StatusAssigned || target == models.StatusInProgress) && issue.AssignedTo == nil {
		fields["assigned_to"] = actor.UserID
		assignee := actor.UserID
		issue.AssignedTo = &assignee
	}
	if target == models.StatusResolved {
		fields["resolved_at"] = now
		issue.ResolvedAt = &now
	}

	if err := s.issues.UpdateFields(ctx, issue.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue")
		}
		return nil, apperror.Store("update issue", err)
	}
	issue.Status = target
	issue.UpdatedAt = now

	s.events.IssueChanged(ctx, events.IssueEvent{
		Action:         events.IssueTransitioned,
		Issue:          *issue,
		ActorID:        actor.UserID,
		PreviousStatus: previous,
	})
	return issue, nil
}

// List returns one page of issues, newest first.
func (s *Service) List(ctx context.Context, filter repository.IssueFilter, page, pageSize int) (*Page, error) {
	page, pageSize = pagination.Normalize(page, pageSize)

	items, total, err := s.issues.List(ctx, filter, pagination.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, apperror.Store("list issues", err)
	}
	if items == nil {
		items = []models.Issue{}
	}
	return &Page{Issues: items, Pagination: pagination.New(page, pageSize, total)}, nil
}

// Stats counts the issues matching filter per status.
func (s *Service) Stats(ctx context.Context, filter repository.IssueFilter) (*models.StatusCounts, error) {
	byStatus, err := s.issues.CountByStatus(ctx, filter)
	if err != nil {
		return nil, apperror.Store("count issues", err)
	}
	counts := &models.StatusCounts{}
	for status, n := range byStatus {
		counts.Add(status, n)
	}
	return counts, nil
}
