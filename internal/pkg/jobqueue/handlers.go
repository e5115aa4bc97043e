package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/imagestore"
	"github.com/smartcity/civicdash/internal/pkg/mail"
)

// Dependencies are what the built-in handlers need. Images may be nil when
// image storage is disabled.
type Dependencies struct {
	Issues       repository.IssueRepository
	Profiles     repository.ProfileRepository
	Mailer       mail.Sender
	Images       imagestore.Store
	DashboardURL string
}

// RegisterHandlers wires the mail and image cleanup handlers into q.
func RegisterHandlers(q *Queue, deps Dependencies) {
	q.Handle(JobTypeResolutionMail, deps.resolutionMail)
	q.Handle(JobTypeAssignmentMail, deps.assignmentMail)
	q.Handle(JobTypeImageDelete, deps.imageDelete)
}

func (d Dependencies) resolutionMail(ctx context.Context, job *Job) error {
	issue, recipient, err := d.loadMailTarget(ctx, job)
	if err != nil || issue == nil {
		return err
	}
	return d.Mailer.Send(ctx, mail.ResolutionNotice(issue, recipient, d.DashboardURL))
}

func (d Dependencies) assignmentMail(ctx context.Context, job *Job) error {
	issue, recipient, err := d.loadMailTarget(ctx, job)
	if err != nil || issue == nil {
		return err
	}
	return d.Mailer.Send(ctx, mail.AssignmentNotice(issue, recipient, d.DashboardURL))
}

// loadMailTarget returns nil, nil, nil when the issue or recipient is gone;
// there is nothing left to notify and retrying will not change that.
func (d Dependencies) loadMailTarget(ctx context.Context, job *Job) (*models.Issue, *models.Profile, error) {
	payload, err := IssueMailPayloadFromMap(job.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	issue, err := d.Issues.GetByID(ctx, payload.IssueID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[JobQueue] Issue %s no longer exists, dropping %s", payload.IssueID, job.Type)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	recipient, err := d.Profiles.GetByID(ctx, payload.RecipientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[JobQueue] Profile %s no longer exists, dropping %s", payload.RecipientID, job.Type)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return issue, recipient, nil
}

func (d Dependencies) imageDelete(ctx context.Context, job *Job) error {
	payload, err := ImageDeletePayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if d.Images == nil || payload.Key == "" {
		return nil
	}
	return d.Images.Delete(ctx, payload.Key)
}
