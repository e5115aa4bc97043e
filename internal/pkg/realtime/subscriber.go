package realtime

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/smartcity/civicdash/internal/pkg/events"
)

// Subscriber feeds envelopes from the Redis channel into the local hub.
type Subscriber struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewSubscriber(client *redis.Client, channel string, hub *Hub) *Subscriber {
	if channel == "" {
		channel = events.DefaultChannel
	}
	return &Subscriber{client: client, channel: channel, hub: hub}
}

// Run blocks until ctx is done. The subscription is confirmed before Run
// starts reading, so publishes after ready is closed are not missed.
func (s *Subscriber) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Infof("[Realtime] Subscribed to %s", s.channel)
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env events.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warnf("[Realtime] Dropping malformed envelope: %v", err)
				continue
			}
			s.hub.Deliver(env)
		}
	}
}
