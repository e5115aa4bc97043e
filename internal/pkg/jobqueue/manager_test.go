package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartcity/civicdash/internal/pkg/env"
)

func TestNewManagerRegistersHandlers(t *testing.T) {
	env.Env = map[string]string{"JOB_QUEUE_WORKERS": "7"}
	t.Cleanup(func() { env.Env = nil })

	m := NewManager(nil, Dependencies{})

	assert.Equal(t, 7, m.GetQueue().workers)
	for _, jt := range []JobType{JobTypeResolutionMail, JobTypeAssignmentMail, JobTypeImageDelete} {
		assert.Contains(t, m.GetQueue().handlers, jt)
	}
	assert.False(t, m.IsRunning())
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil, Dependencies{})
	assert.NotPanics(t, m.Stop)
	assert.False(t, m.IsRunning())
}
