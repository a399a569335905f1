package domain

import "time"

// ScheduledRepost drives repeated publication of an ad into one channel.
type ScheduledRepost struct {
	ID            int64         `json:"id"`
	AdID          int64         `json:"ad_id"`
	ChannelID     int64         `json:"channel_id"`
	Pinned        bool          `json:"pinned"`
	NextRunAt     time.Time     `json:"next_run_at"`
	RemainingRuns int           `json:"remaining_runs"`
	Interval      time.Duration `json:"interval"`
	// Failures counts consecutive failed publications of the current run.
	Failures int `json:"failures"`
}

// Due reports whether the repost should run at now.
func (r *ScheduledRepost) Due(now time.Time) bool {
	return !r.NextRunAt.After(now)
}

// Advance consumes one run. It returns true when no runs remain and the row
// should be removed.
func (r *ScheduledRepost) Advance() bool {
	r.RemainingRuns--
	r.Failures = 0
	if r.RemainingRuns > 0 {
		r.NextRunAt = r.NextRunAt.Add(r.Interval)
		return false
	}
	return true
}

// DueRepost is a due repost joined with what the scheduler needs to publish it.
type DueRepost struct {
	Repost      ScheduledRepost
	ChannelChat int64
}
