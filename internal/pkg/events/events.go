// Package events carries notifications out of the core services. Services
// call a Publisher after a write has committed; delivery happens elsewhere.
package events

import (
	"context"
	"sync"

	"github.com/smartcity/civicdash/app/models"
)

type IssueAction string

const (
	IssueCreated      IssueAction = "created"
	IssueTransitioned IssueAction = "transitioned"
	IssueAssigned     IssueAction = "assigned"
)

type IssueEvent struct {
	Action         IssueAction        `json:"action"`
	Issue          models.Issue       `json:"issue"`
	ActorID        string             `json:"actor_id"`
	PreviousStatus models.IssueStatus `json:"previous_status,omitempty"`
}

type MessageEvent struct {
	Message    models.Message `json:"message"`
	Recipients []string       `json:"recipients"`
}

// Publisher is notified after issue and message writes. Implementations must
// not block the caller for long and report failures through logging only.
type Publisher interface {
	IssueChanged(ctx context.Context, evt IssueEvent)
	MessageSent(ctx context.Context, evt MessageEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) IssueChanged(context.Context, IssueEvent) {}
func (Nop) MessageSent(context.Context, MessageEvent) {}

// Fanout forwards every event to each publisher in order.
type Fanout []Publisher

func (f Fanout) IssueChanged(ctx context.Context, evt IssueEvent) {
	for _, p := range f {
		p.IssueChanged(ctx, evt)
	}
}

func (f Fanout) MessageSent(ctx context.Context, evt MessageEvent) {
	for _, p := range f {
		p.MessageSent(ctx, evt)
	}
}

// Recorder keeps events in memory. Tests use it to assert on publication.
type Recorder struct {
	mu       sync.Mutex
	Issues   []IssueEvent
	Messages []MessageEvent
}

func (r *Recorder) IssueChanged(_ context.Context, evt IssueEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, evt)
}

func (r *Recorder) MessageSent(_ context.Context, evt MessageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, evt)
}
