package events

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "civicdash:events"

const (
	TypeIssue   = "issue"
	TypeMessage = "message"
)

// Envelope is the wire format on the pub/sub channel. UserIDs and Department
// select who receives Data; both may be set.
type Envelope struct {
	Type       string          `json:"type"`
	Action     string          `json:"action,omitempty"`
	UserIDs    []string        `json:"user_ids,omitempty"`
	Department string          `json:"department,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// RedisPublisher broadcasts events to every instance over Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) IssueChanged(ctx context.Context, evt IssueEvent) {
	users := []string{evt.Issue.ReportedBy}
	if evt.Issue.AssignedTo != nil && *evt.Issue.AssignedTo != evt.Issue.ReportedBy {
		users = append(users, *evt.Issue.AssignedTo)
	}
	p.publish(ctx, TypeIssue, string(evt.Action), users, string(evt.Issue.AssignedDepartment), evt)
}

func (p *RedisPublisher) MessageSent(ctx context.Context, evt MessageEvent) {
	p.publish(ctx, TypeMessage, "sent", evt.Recipients, "", evt)
}

func (p *RedisPublisher) publish(ctx context.Context, typ, action string, users []string, department string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("[Events] Failed to encode %s event: %v", typ, err)
		return
	}
	env, err := json.Marshal(Envelope{
		Type:       typ,
		Action:     action,
		UserIDs:    users,
		Department: department,
		Data:       data,
	})
	if err != nil {
		log.Errorf("[Events] Failed to encode envelope: %v", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, env).Err(); err != nil {
		log.Warnf("[Events] Failed to publish %s.%s: %v", typ, action, err)
	}
}
