package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type adService struct {
	uow      repository.UnitOfWork
	policy   StaffPolicy
	collab   Collaborators
	settings Settings
}

func NewAdService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators, settings Settings) AdService {
	return &adService{uow: uow, policy: policy, collab: collab.withDefaults(), settings: settings}
}

func (s *adService) Submit(ctx context.Context, ownerID int64, sub domain.AdSubmission) (*domain.Ad, error) {
	logger.EnterMethod("adService.Submit", "ownerID", ownerID)
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	now := s.collab.now()
	ad := sub.NewAd(ownerID, domain.PlacementStandard, now)
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireActive(ctx, repos.Accounts, ownerID, now); err != nil {
			return err
		}
		return repos.Ads.Create(ctx, ad)
	})
	if err != nil {
		logger.ExitMethodWithError("adService.Submit", err, "ownerID", ownerID)
		return nil, err
	}

	s.collab.alert(ctx, "New ad awaiting moderation", fmt.Sprintf("Ad %d from account %d:\n%s", ad.ID, ownerID, ad.Text))
	s.collab.emit(ctx, EventAdSubmitted, ad)
	logger.ExitMethod("adService.Submit", "adID", ad.ID)
	return ad, nil
}

// Get hides unpublished ads from anyone but their owner and staff.
func (s *adService) Get(ctx context.Context, viewerID, adID int64) (*domain.Ad, error) {
	ad, err := s.uow.Repos().Ads.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	if !ad.Publishable() && ad.OwnerID != viewerID && !s.policy.IsStaff(viewerID) {
		return nil, fmt.Errorf("ad %d: %w", adID, domain.ErrNotFound)
	}
	return ad, nil
}

func (s *adService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ad, error) {
	return s.uow.Repos().Ads.ListByOwner(ctx, ownerID)
}

func (s *adService) Search(ctx context.Context, filter domain.AdFilter) ([]domain.Ad, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, validationf("limit and offset must not be negative")
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.uow.Repos().Ads.Search(ctx, filter)
}

func (s *adService) Approve(ctx context.Context, staffID, adID int64) (*domain.Ad, error) {
	return s.moderate(ctx, staffID, adID, domain.ModerationApproved)
}

func (s *adService) Reject(ctx context.Context, staffID, adID int64) (*domain.Ad, error) {
	return s.moderate(ctx, staffID, adID, domain.ModerationRejected)
}

// moderate applies a moderation decision. Repeating the decision an ad already
// carries reports ErrAlreadyProcessed and leaves it untouched.
func (s *adService) moderate(ctx context.Context, staffID, adID int64, next domain.ModerationStatus) (*domain.Ad, error) {
	logger.EnterMethod("adService.moderate", "staffID", staffID, "adID", adID, "next", next)
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var ad *domain.Ad
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ad, err = repos.Ads.GetForUpdate(ctx, adID)
		if err != nil {
			return err
		}
		if ad.Status == next {
			return fmt.Errorf("%w: ad %d is already %s", domain.ErrAlreadyProcessed, adID, next)
		}
		if !ad.CanModerate(next) {
			return fmt.Errorf("%w: ad %d cannot move from %s to %s", domain.ErrInvalidTransition, adID, ad.Status, next)
		}
		ok, err := repos.Ads.UpdateStatus(ctx, adID, ad.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: ad %d was moderated concurrently", domain.ErrAlreadyProcessed, adID)
		}
		ad.Status, ad.UpdatedAt = next, now
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("adService.moderate", err, "adID", adID)
		return nil, err
	}

	if next == domain.ModerationApproved {
		s.collab.notify(ctx, ad.OwnerID, fmt.Sprintf("Your ad #%d has been approved.", ad.ID))
		s.collab.emit(ctx, EventAdApproved, ad)
	} else {
		s.collab.notify(ctx, ad.OwnerID, fmt.Sprintf("Your ad #%d has been rejected by moderation.", ad.ID))
		s.collab.emit(ctx, EventAdRejected, ad)
	}
	logger.ExitMethod("adService.moderate", "adID", adID, "status", next)
	return ad, nil
}

func (s *adService) destination(ad *domain.Ad) int64 {
	if ad.Kind == domain.PlacementExchange {
		return s.settings.ExchangeChatID
	}
	return s.settings.MarketingChatID
}

// Publish posts an approved, active ad to its feed. Delivery failures are
// reported in the result; the ad itself is not changed.
func (s *adService) Publish(ctx context.Context, staffID, adID int64) (*PublishResult, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	ad, err := s.uow.Repos().Ads.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, ad)
}

func (s *adService) publish(ctx context.Context, ad *domain.Ad) (*PublishResult, error) {
	if !ad.Publishable() {
		return nil, fmt.Errorf("%w: ad %d is %s and active=%t", domain.ErrInvalidTransition, ad.ID, ad.Status, ad.Active)
	}
	res := &PublishResult{Ad: ad, Destination: s.destination(ad)}
	if res.Destination == 0 {
		logger.Warn("No publication chat configured", "ad_id", ad.ID, "kind", ad.Kind)
		return res, nil
	}
	if err := s.collab.Publisher.Publish(ctx, res.Destination, ad, false); err != nil {
		logger.Warn("Ad publication failed", "ad_id", ad.ID, "chat_id", res.Destination, "error", err)
		return res, nil
	}
	res.Delivered = true
	return res, nil
}

func (s *adService) ApproveAndPublish(ctx context.Context, staffID, adID int64) (*PublishResult, error) {
	ad, err := s.Approve(ctx, staffID, adID)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, ad)
}

func (s *adService) EditText(ctx context.Context, staffID, adID int64, text string) (*domain.Ad, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, validationf("ad text is required")
	}
	now := s.collab.now()
	var ad *domain.Ad
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if ad, err = repos.Ads.GetForUpdate(ctx, adID); err != nil {
			return err
		}
		if ad.Status == domain.ModerationRejected {
			return fmt.Errorf("%w: ad %d was rejected", domain.ErrInvalidTransition, adID)
		}
		ad.Text, ad.UpdatedAt = text, now
		return repos.Ads.UpdateText(ctx, adID, text, now)
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// EditPrice changes the asking price. Pending sales keep the amount they were
// reserved at.
func (s *adService) EditPrice(ctx context.Context, staffID, adID int64, price decimal.Decimal) (*domain.Ad, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	if err := domain.ValidatePrice("price", price); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var ad *domain.Ad
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if ad, err = repos.Ads.GetForUpdate(ctx, adID); err != nil {
			return err
		}
		if ad.Status == domain.ModerationRejected {
			return fmt.Errorf("%w: ad %d was rejected", domain.ErrInvalidTransition, adID)
		}
		ad.Price, ad.UpdatedAt = price, now
		return repos.Ads.UpdatePrice(ctx, adID, price, now)
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

func (s *adService) Deactivate(ctx context.Context, staffID, adID int64) (*domain.Ad, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	ad, err := s.deactivate(ctx, adID)
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, ad.OwnerID, fmt.Sprintf("Your ad #%d has been taken down.", ad.ID))
	return ad, nil
}

func (s *adService) deactivate(ctx context.Context, adID int64) (*domain.Ad, error) {
	now := s.collab.now()
	var ad *domain.Ad
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if ad, err = repos.Ads.GetForUpdate(ctx, adID); err != nil {
			return err
		}
		if !ad.Active {
			return fmt.Errorf("%w: ad %d is already inactive", domain.ErrAlreadyProcessed, adID)
		}
		ad.Active, ad.UpdatedAt = false, now
		return repos.Ads.SetActive(ctx, adID, false, now)
	})
	if err != nil {
		return nil, err
	}
	s.collab.emit(ctx, EventAdDeactivated, ad)
	return ad, nil
}

func (s *adService) RequestExtension(ctx context.Context, ownerID, adID int64) (*domain.ExtensionRequest, error) {
	now := s.collab.now()
	req := &domain.ExtensionRequest{AdID: adID, OwnerID: ownerID, Status: domain.ExtensionPending, CreatedAt: now}
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireActive(ctx, repos.Accounts, ownerID, now); err != nil {
			return err
		}
		ad, err := repos.Ads.GetForUpdate(ctx, adID)
		if err != nil {
			return err
		}
		if ad.OwnerID != ownerID {
			return fmt.Errorf("%w: ad %d belongs to another account", domain.ErrForbidden, adID)
		}
		if ad.Status == domain.ModerationRejected {
			return fmt.Errorf("%w: ad %d was rejected", domain.ErrInvalidTransition, adID)
		}
		if !ad.ExtensionEligible(now, s.settings.AdLifetime, s.settings.ExtensionWindow) {
			return fmt.Errorf("%w: ad %d is not close to expiry", domain.ErrInvalidTransition, adID)
		}
		pending, err := repos.Extensions.FindPendingForAd(ctx, adID)
		if err != nil {
			return err
		}
		if pending != nil {
			return fmt.Errorf("%w: ad %d already has extension request %d", domain.ErrAlreadyProcessed, adID, pending.ID)
		}
		return repos.Extensions.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.collab.alert(ctx, "Ad extension requested", fmt.Sprintf("Account %d asks to extend ad %d (request %d).", ownerID, adID, req.ID))
	return req, nil
}

func (s *adService) ApproveExtension(ctx context.Context, staffID, requestID int64) (*domain.Ad, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var ad *domain.Ad
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Extensions.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		ok, err := repos.Extensions.Decide(ctx, requestID, domain.ExtensionApproved, staffID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: extension request %d", domain.ErrAlreadyProcessed, requestID)
		}
		if err := repos.Ads.Renew(ctx, req.AdID, now); err != nil {
			return err
		}
		ad, err = repos.Ads.GetByID(ctx, req.AdID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, ad.OwnerID, fmt.Sprintf("Your ad #%d has been extended.", ad.ID))
	s.collab.emit(ctx, EventAdExtended, ad)
	return ad, nil
}

func (s *adService) RejectExtension(ctx context.Context, staffID, requestID int64) (*domain.ExtensionRequest, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var req *domain.ExtensionRequest
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if req, err = repos.Extensions.GetByID(ctx, requestID); err != nil {
			return err
		}
		ok, err := repos.Extensions.Decide(ctx, requestID, domain.ExtensionRejected, staffID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: extension request %d", domain.ErrAlreadyProcessed, requestID)
		}
		req.Status, req.DecidedAt, req.DecidedBy = domain.ExtensionRejected, &now, &staffID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, req.OwnerID, fmt.Sprintf("The extension of ad #%d was declined.", req.AdID))
	return req, nil
}

// ExpireStale deactivates published ads older than the ad lifetime and tells
// their owners they may ask for an extension.
func (s *adService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.collab.now().Add(-s.settings.AdLifetime)
	ads, err := s.uow.Repos().Ads.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, a := range ads {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.deactivate(ctx, a.ID); err != nil {
			if errors.Is(err, domain.ErrAlreadyProcessed) {
				continue
			}
			logger.Warn("Failed to expire ad", "ad_id", a.ID, "error", err)
			continue
		}
		expired++
		s.collab.notify(ctx, a.OwnerID, fmt.Sprintf("Your ad #%d has expired. You can request a free extension.", a.ID))
	}
	return expired, nil
}
