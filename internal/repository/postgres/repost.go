package postgres

import (
	"context"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type repostRepository struct {
	q querier
}

func NewRepostRepository(q querier) repository.RepostRepository {
	return &repostRepository{q: q}
}

func (r *repostRepository) Create(ctx context.Context, rp *domain.ScheduledRepost) error {
	query := `INSERT INTO scheduled_reposts (ad_id, channel_id, pinned, next_run_at, remaining_runs, interval_seconds)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.q.QueryRowContext(ctx, query, rp.AdID, rp.ChannelID, rp.Pinned, rp.NextRunAt, rp.RemainingRuns,
		int64(rp.Interval/time.Second)).Scan(&rp.ID)
}

// ListDue skips reposts whose ad is still waiting for moderation; they stay due
// until a decision is made.
func (r *repostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueRepost, error) {
	query := `SELECT sr.id, sr.ad_id, sr.channel_id, sr.pinned, sr.next_run_at, sr.remaining_runs, sr.interval_seconds, sr.failures, c.chat_id
	          FROM scheduled_reposts sr
	          JOIN ads a ON a.id = sr.ad_id
	          JOIN channels c ON c.id = sr.channel_id
	          WHERE sr.next_run_at <= $1 AND a.moderation_status <> 'pending'
	          ORDER BY sr.next_run_at, sr.id LIMIT $2`
	logger.DatabaseCall("select", "due reposts")
	rows, err := r.q.QueryContext(ctx, query, now, limit)
	if err != nil {
		logger.DatabaseResult("select", 0, err)
		return nil, err
	}
	defer rows.Close()

	var due []domain.DueRepost
	for rows.Next() {
		var d domain.DueRepost
		var intervalSeconds int64
		if err := rows.Scan(&d.Repost.ID, &d.Repost.AdID, &d.Repost.ChannelID, &d.Repost.Pinned, &d.Repost.NextRunAt,
			&d.Repost.RemainingRuns, &intervalSeconds, &d.Repost.Failures, &d.ChannelChat); err != nil {
			return nil, err
		}
		d.Repost.Interval = time.Duration(intervalSeconds) * time.Second
		due = append(due, d)
	}
	return due, rows.Err()
}

func (r *repostRepository) Reschedule(ctx context.Context, id int64, expectedRuns, remaining int, next time.Time) (bool, error) {
	query := `UPDATE scheduled_reposts SET remaining_runs = $1, next_run_at = $2, failures = 0 WHERE id = $3 AND remaining_runs = $4`
	res, err := r.q.ExecContext(ctx, query, remaining, next, id, expectedRuns)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (r *repostRepository) RecordFailure(ctx context.Context, id int64, expectedRuns int) (bool, error) {
	query := `UPDATE scheduled_reposts SET failures = failures + 1 WHERE id = $1 AND remaining_runs = $2`
	res, err := r.q.ExecContext(ctx, query, id, expectedRuns)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (r *repostRepository) Delete(ctx context.Context, id int64, expectedRuns int) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM scheduled_reposts WHERE id = $1 AND remaining_runs = $2`, id, expectedRuns)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (r *repostRepository) ListByAd(ctx context.Context, adID int64) ([]domain.ScheduledRepost, error) {
	query := `SELECT id, ad_id, channel_id, pinned, next_run_at, remaining_runs, interval_seconds, failures
	          FROM scheduled_reposts WHERE ad_id = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, adID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduledRepost
	for rows.Next() {
		var rp domain.ScheduledRepost
		var intervalSeconds int64
		if err := rows.Scan(&rp.ID, &rp.AdID, &rp.ChannelID, &rp.Pinned, &rp.NextRunAt, &rp.RemainingRuns, &intervalSeconds, &rp.Failures); err != nil {
			return nil, err
		}
		rp.Interval = time.Duration(intervalSeconds) * time.Second
		out = append(out, rp)
	}
	return out, rows.Err()
}
