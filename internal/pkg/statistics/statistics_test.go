package statistics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/events"
	"github.com/smartcity/civicdash/internal/pkg/redistest"
)

type countingSource struct {
	calls  int
	counts models.StatusCounts
}

func (c *countingSource) Stats(context.Context, repository.IssueFilter) (*models.StatusCounts, error) {
	c.calls++
	out := c.counts
	return &out, nil
}

func TestIssueStatsCachesUntilIssueChanges(t *testing.T) {
	client := redistest.Client(t, 11)
	ctx := context.Background()

	src := &countingSource{counts: models.StatusCounts{Total: 3, Pending: 3}}
	stats := NewIssueStats(src, client, 0)
	works := repository.IssueFilter{Department: models.DeptPublicWorks}

	got, err := stats.Stats(ctx, works)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Pending)

	got, err = stats.Stats(ctx, works)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Total)
	assert.Equal(t, 1, src.calls)

	// A different filter is a different entry.
	_, err = stats.Stats(ctx, repository.IssueFilter{Department: models.DeptTransport})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	src.counts = models.StatusCounts{Total: 3, Pending: 2, Assigned: 1}
	stats.IssueChanged(ctx, events.IssueEvent{Action: events.IssueAssigned})

	got, err = stats.Stats(ctx, works)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Assigned)
	assert.Equal(t, 3, src.calls)
}
