package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/smartcity/civicdash/internal/pkg/env"
)

// Manager owns the queue and its periodic background tasks
type Manager struct {
	queue         *Queue
	statsInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager builds a queue with JOB_QUEUE_WORKERS workers and the built-in handlers.
func NewManager(client *redis.Client, deps Dependencies) *Manager {
	q := NewQueue(client, env.GetInt("JOB_QUEUE_WORKERS", 3))
	RegisterHandlers(q, deps)
	return &Manager{
		queue:         q,
		statsInterval: env.GetDuration("JOB_QUEUE_STATS_INTERVAL", 5*time.Minute),
		stopCh:        make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	close(m.stopCh)
	m.running = false
	m.wg.Wait()
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

// statsWorker logs queue depth so a backlog shows up in the logs
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.logStats(context.Background())
		}
	}
}

func (m *Manager) logStats(ctx context.Context) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Failed to read queue size: %v", err)
		return
	}
	processing, _ := m.queue.GetProcessingSize(ctx)
	retrying, _ := m.queue.GetRetrySize(ctx)
	stats, _ := m.queue.GetJobStats(ctx)
	log.Infof("[JobQueue Manager] pending=%d processing=%d retrying=%d completed=%d failed=%d",
		pending, processing, retrying, stats[JobStatusCompleted], stats[JobStatusFailed])
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
