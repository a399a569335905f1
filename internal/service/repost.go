package service

import (
	"context"
	"fmt"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

// PublishDueLock names the lock a scheduler holds for the length of a tick.
const PublishDueLock = "publish_due_reposts"

// DefaultRepostMaxFailures applies when Settings.RepostMaxFailures is unset.
const DefaultRepostMaxFailures = 5

type repostService struct {
	uow      repository.UnitOfWork
	locker   repository.Locker
	collab   Collaborators
	settings Settings
}

// NewRepostService builds the scheduler service. A nil locker runs every tick
// unguarded, which is only safe with a single scheduler process.
func NewRepostService(uow repository.UnitOfWork, locker repository.Locker, collab Collaborators, settings Settings) RepostService {
	if settings.RepostMaxFailures <= 0 {
		settings.RepostMaxFailures = DefaultRepostMaxFailures
	}
	return &repostService{uow: uow, locker: locker, collab: collab.withDefaults(), settings: settings}
}

// PublishDue runs one scheduler tick under PublishDueLock; a tick that finds
// the lock taken does nothing. Each due repost is published outside any
// transaction and then advanced in its own unit of work, so a failure on one
// row never touches another. A row whose publication fails keeps its run and
// is retried on the next tick until RepostMaxFailures consecutive failures,
// after which the run is consumed and staff are alerted. Rows whose ad was
// rejected or deactivated are consumed without publishing.
func (s *repostService) PublishDue(ctx context.Context) (*RepostReport, error) {
	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, PublishDueLock)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Info("Repost tick skipped; another scheduler holds the lock", "lock", PublishDueLock)
			return &RepostReport{Contended: true}, nil
		}
		defer unlock()
	}

	repos := s.uow.Repos()
	due, err := repos.Reposts.ListDue(ctx, s.collab.now(), s.settings.RepostBatchSize)
	if err != nil {
		return nil, err
	}
	report := &RepostReport{Due: len(due)}

	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rp := d.Repost
		ad, err := repos.Ads.GetByID(ctx, rp.AdID)
		if err != nil {
			logger.Warn("Repost ad lookup failed", "repost_id", rp.ID, "ad_id", rp.AdID, "error", err)
			report.Failed++
			continue
		}

		if !ad.Publishable() {
			report.Skipped++
		} else if err := s.collab.Publisher.Publish(ctx, d.ChannelChat, ad, rp.Pinned); err != nil {
			logger.Warn("Repost publication failed", "repost_id", rp.ID, "chat_id", d.ChannelChat,
				"failures", rp.Failures+1, "error", err)
			report.Failed++
			if rp.Failures+1 < s.settings.RepostMaxFailures {
				s.recordFailure(ctx, rp)
				continue
			}
			report.Abandoned++
			s.alertAbandoned(ctx, d, err)
		} else {
			report.Published++
		}

		finished, err := s.advance(ctx, rp)
		if err != nil {
			logger.Warn("Repost advance failed", "repost_id", rp.ID, "error", err)
			report.Failed++
			continue
		}
		if finished {
			report.Finished++
		}
	}

	logger.Info("Repost tick finished", "due", report.Due, "published", report.Published,
		"skipped", report.Skipped, "failed", report.Failed, "abandoned", report.Abandoned, "finished", report.Finished)
	return report, nil
}

func (s *repostService) recordFailure(ctx context.Context, rp domain.ScheduledRepost) {
	ok, err := s.uow.Repos().Reposts.RecordFailure(ctx, rp.ID, rp.RemainingRuns)
	if err != nil {
		logger.Warn("Repost failure count not stored", "repost_id", rp.ID, "error", err)
		return
	}
	if !ok {
		logger.Warn("Repost advanced concurrently; failure not counted", "repost_id", rp.ID)
	}
}

func (s *repostService) alertAbandoned(ctx context.Context, d domain.DueRepost, cause error) {
	rp := d.Repost
	logger.Warn("Repost run abandoned after repeated failures", "repost_id", rp.ID, "ad_id", rp.AdID,
		"chat_id", d.ChannelChat, "failures", rp.Failures+1)
	msg := fmt.Sprintf("Repost %d of ad %d to chat %d failed %d times in a row and its run was consumed: %v",
		rp.ID, rp.AdID, d.ChannelChat, rp.Failures+1, cause)
	if err := s.collab.Alerter.AlertStaff(ctx, "Repost abandoned", msg); err != nil {
		logger.Warn("Staff alert failed", "repost_id", rp.ID, "error", err)
	}
}

func (s *repostService) advance(ctx context.Context, rp domain.ScheduledRepost) (bool, error) {
	expected := rp.RemainingRuns
	finished := rp.Advance()
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var ok bool
		var err error
		if finished {
			ok, err = repos.Reposts.Delete(ctx, rp.ID, expected)
		} else {
			ok, err = repos.Reposts.Reschedule(ctx, rp.ID, expected, rp.RemainingRuns, rp.NextRunAt)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: repost %d advanced concurrently", domain.ErrAlreadyProcessed, rp.ID)
		}
		return nil
	})
	return finished, err
}
