package jobqueue

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/internal/pkg/events"
)

// Enqueuer is the part of Queue the notifier needs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error)
}

// Notifier turns issue events into mail jobs and schedules image cleanup.
// It satisfies events.Publisher and issues.ImageCleaner.
type Notifier struct {
	queue Enqueuer
}

func NewNotifier(q Enqueuer) *Notifier {
	return &Notifier{queue: q}
}

func (n *Notifier) IssueChanged(ctx context.Context, evt events.IssueEvent) {
	issue := evt.Issue
	switch evt.Action {
	case events.IssueTransitioned:
		if issue.Status != models.StatusResolved || evt.PreviousStatus == models.StatusResolved {
			return
		}
		n.enqueue(ctx, JobTypeResolutionMail, IssueMailPayload{IssueID: issue.ID, RecipientID: issue.ReportedBy}.ToMap())
	case events.IssueAssigned:
		// Workers who picked the issue themselves already know.
		if issue.AssignedTo == nil || *issue.AssignedTo == evt.ActorID {
			return
		}
		n.enqueue(ctx, JobTypeAssignmentMail, IssueMailPayload{IssueID: issue.ID, RecipientID: *issue.AssignedTo}.ToMap())
	}
}

func (n *Notifier) MessageSent(context.Context, events.MessageEvent) {}

// ScheduleImageDelete queues removal of an uploaded object.
func (n *Notifier) ScheduleImageDelete(ctx context.Context, key string) error {
	_, err := n.queue.EnqueueJob(ctx, JobTypeImageDelete, ImageDeletePayload{Key: key}.ToMap())
	return err
}

func (n *Notifier) enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) {
	if _, err := n.queue.EnqueueJob(ctx, jobType, payload); err != nil {
		log.Errorf("[JobQueue] Failed to enqueue %s: %v", jobType, err)
	}
}
