package issues

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/events"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// Assign binds a worker of the issue's department to the issue. The status is
// left alone. Concurrent calls are last-write-wins.
func (s *Service) Assign(ctx context.Context, issueID, workerID string, actor usercontext.UserContext) (*models.Issue, error) {
	return s.assign(ctx, issueID, workerID, actor, false)
}

// AssignToSelf assigns the actor and moves a pending issue to assigned in the same update.
func (s *Service) AssignToSelf(ctx context.Context, issueID string, actor usercontext.UserContext) (*models.Issue, error) {
	return s.assign(ctx, issueID, actor.UserID, actor, true)
}

func (s *Service) assign(ctx context.Context, issueID, workerID string, actor usercontext.UserContext, claim bool) (*models.Issue, error) {
	if !actor.IsLoggedIn {
		return nil, apperror.Unauthorized("login required")
	}
	if issueID == "" || workerID == "" {
		return nil, apperror.Validation("issue id and worker id are required")
	}

	issue, err := s.load(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageDepartment(issue.AssignedDepartment) {
		return nil, apperror.Forbidden("only admins or officials of the issue's department may assign it")
	}

	worker, err := s.profiles.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("worker")
		}
		return nil, apperror.Store("load worker", err)
	}
	if !worker.IsOfficial() || worker.Department != string(issue.AssignedDepartment) {
		return nil, apperror.Forbidden("worker does not belong to the " + string(issue.AssignedDepartment) + " department")
	}

	previous := issue.Status
	now := s.timestamp()
	fields := map[string]interface{}{
		"assigned_to": worker.ID,
		"updated_at":  now,
	}
	if claim && issue.Status == models.StatusPending {
		fields["status"] = models.StatusAssigned
	}

	if err := s.issues.UpdateFields(ctx, issue.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue")
		}
		return nil, apperror.Store("assign issue", err)
	}
	assignee := worker.ID
	issue.AssignedTo = &assignee
	issue.UpdatedAt = now
	if status, ok := fields["status"].(models.IssueStatus); ok {
		issue.Status = status
	}

	s.events.IssueChanged(ctx, events.IssueEvent{
		Action:         events.IssueAssigned,
		Issue:          *issue,
		ActorID:        actor.UserID,
		PreviousStatus: previous,
	})
	return issue, nil
}

// ListWorkersByDepartment returns the officials of a department ordered by name.
func (s *Service) ListWorkersByDepartment(ctx context.Context, department string) ([]models.Profile, error) {
	dept := models.Department(strings.ToLower(strings.TrimSpace(department)))
	if !dept.IsValid() {
		return nil, apperror.Validation("unknown department %q", department)
	}
	workers, err := s.profiles.ListOfficials(ctx, dept)
	if err != nil {
		return nil, apperror.Store("list workers", err)
	}
	if workers == nil {
		workers = []models.Profile{}
	}
	return workers, nil
}
