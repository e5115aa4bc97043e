// Package statistics caches the per-status issue counts shown on dashboards.
package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/events"
)

const (
	CacheKeyGeneration = "statistics:issues:generation"
	CacheKeyCounts     = "statistics:issues:%d:%s" // generation, filter
	CacheExpiration    = 5 * time.Minute
)

// Source computes counts from the database.
type Source interface {
	Stats(ctx context.Context, filter repository.IssueFilter) (*models.StatusCounts, error)
}

// IssueStats serves counts from Redis and falls back to Source on a miss.
// Every issue event bumps a generation number, which retires all cached
// entries across instances at once.
type IssueStats struct {
	source Source
	client *redis.Client
	ttl    time.Duration
}

func NewIssueStats(source Source, client *redis.Client, ttl time.Duration) *IssueStats {
	if ttl <= 0 {
		ttl = CacheExpiration
	}
	return &IssueStats{source: source, client: client, ttl: ttl}
}

func (s *IssueStats) Stats(ctx context.Context, filter repository.IssueFilter) (*models.StatusCounts, error) {
	key, err := s.key(ctx, filter)
	if err != nil {
		log.Warnf("[Statistics] Cache unavailable: %v", err)
		return s.source.Stats(ctx, filter)
	}

	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var counts models.StatusCounts
		if err := json.Unmarshal(raw, &counts); err == nil {
			return &counts, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warnf("[Statistics] Cache read failed: %v", err)
	}

	counts, err := s.source.Stats(ctx, filter)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(counts); err == nil {
		if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			log.Warnf("[Statistics] Cache write failed: %v", err)
		}
	}
	return counts, nil
}

func (s *IssueStats) key(ctx context.Context, f repository.IssueFilter) (string, error) {
	gen, err := s.client.Get(ctx, CacheKeyGeneration).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	filter := fmt.Sprintf("d=%s|s=%s|c=%s|p=%s|r=%s|a=%s",
		f.Department, f.Status, f.Category, f.Priority, f.ReportedBy, f.AssignedTo)
	return fmt.Sprintf(CacheKeyCounts, gen, filter), nil
}

// IssueChanged invalidates every cached count.
func (s *IssueStats) IssueChanged(ctx context.Context, _ events.IssueEvent) {
	if err := s.client.Incr(ctx, CacheKeyGeneration).Err(); err != nil {
		log.Warnf("[Statistics] Could not invalidate cache: %v", err)
	}
}

func (s *IssueStats) MessageSent(context.Context, events.MessageEvent) {}
