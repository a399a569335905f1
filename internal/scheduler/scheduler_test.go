package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/config"
	"adboard-backend/internal/jobs"
)

func TestNewScheduler_RegistersEveryJob(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		PublishDueReposts: "@every 60s",
		ExpireStaleAds:    "0 0 * * * *",
		LiftExpiredBans:   "0 */10 * * * *",
		SweepSessions:     "0 */5 * * * *",
	}}

	s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Entries())
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		PublishDueReposts: "every minute please",
		ExpireStaleAds:    "0 0 * * * *",
		LiftExpiredBans:   "0 */10 * * * *",
		SweepSessions:     "0 */5 * * * *",
	}}

	_, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
	assert.Error(t, err)
}
