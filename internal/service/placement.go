package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/pricing"
	"adboard-backend/internal/repository"
)

type placementService struct {
	uow      repository.UnitOfWork
	engine   *pricing.Engine
	carts    CartStore
	collab   Collaborators
	settings Settings
}

func NewPlacementService(uow repository.UnitOfWork, engine *pricing.Engine, carts CartStore, collab Collaborators, settings Settings) PlacementService {
	return &placementService{uow: uow, engine: engine, carts: carts, collab: collab.withDefaults(), settings: settings}
}

func channelIDs(picks []domain.Pick) []int64 {
	ids := make([]int64, 0, len(picks))
	for _, p := range picks {
		ids = append(ids, p.ChannelID)
	}
	return ids
}

func (s *placementService) quote(ctx context.Context, channels repository.ChannelRepository, picks []domain.Pick, mode domain.PlacementMode) (*domain.Quote, error) {
	for _, p := range picks {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	byID, err := channels.GetByIDs(ctx, channelIDs(picks))
	if err != nil {
		return nil, err
	}
	return s.engine.Quote(byID, picks, mode)
}

func (s *placementService) Quote(ctx context.Context, picks []domain.Pick, mode domain.PlacementMode) (*domain.Quote, error) {
	return s.quote(ctx, s.uow.Repos().Channels, picks, mode)
}

// Purchase prices the picks again against current channel prices, charges the
// total and creates one pending exchange ad plus its repost schedule per
// channel. It fails with ErrQuoteChanged when prices moved since the quote.
func (s *placementService) Purchase(ctx context.Context, accountID int64, sub domain.AdSubmission, picks []domain.Pick, mode domain.PlacementMode, quotedTotal decimal.Decimal) (*domain.Placement, error) {
	logger.EnterMethod("placementService.Purchase", "accountID", accountID, "mode", mode, "channels", len(picks))
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	now := s.collab.now()
	placement := &domain.Placement{}
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireActive(ctx, repos.Accounts, accountID, now); err != nil {
			return err
		}
		quote, err := s.quote(ctx, repos.Channels, picks, mode)
		if err != nil {
			return err
		}
		if !quote.Total.Equal(quotedTotal) {
			return fmt.Errorf("%w: quoted %s, now %s", domain.ErrQuoteChanged, quotedTotal.StringFixed(2), quote.Total.StringFixed(2))
		}
		if _, err := debit(ctx, repos.Ledger, accountID, quote.Total); err != nil {
			return err
		}
		placement.Quote = quote

		for i, line := range quote.Lines {
			ad := sub.NewAd(accountID, domain.PlacementExchange, now)
			if ad.Title == "" {
				ad.Title = line.ChannelTitle
			}
			channelID := line.ChannelID
			ad.ChannelID = &channelID
			if err := repos.Ads.Create(ctx, ad); err != nil {
				return err
			}
			rp := &domain.ScheduledRepost{
				AdID:          ad.ID,
				ChannelID:     channelID,
				Pinned:        picks[i].Pin,
				NextRunAt:     now,
				RemainingRuns: picks[i].Runs(),
				Interval:      s.settings.RepostInterval,
			}
			if err := repos.Reposts.Create(ctx, rp); err != nil {
				return err
			}
			placement.Ads = append(placement.Ads, *ad)
			placement.Reposts = append(placement.Reposts, *rp)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("placementService.Purchase", err, "accountID", accountID)
		return nil, err
	}

	total := placement.Quote.Total.StringFixed(2)
	s.collab.notify(ctx, accountID, fmt.Sprintf("Placement paid: %s for %d channel(s). Your ad is awaiting moderation.", total, len(placement.Ads)))
	s.collab.alert(ctx, "New paid placement awaiting moderation",
		fmt.Sprintf("Account %d paid %s for %d channel(s). First ad: #%d", accountID, total, len(placement.Ads), placement.Ads[0].ID))
	s.collab.emit(ctx, EventPlacementPurchased, placement)
	logger.ExitMethod("placementService.Purchase", "accountID", accountID, "total", total)
	return placement, nil
}

func (s *placementService) Cart(ctx context.Context, accountID int64) (*domain.PlacementSelection, *domain.Quote, error) {
	sel, err := s.carts.Load(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if sel == nil {
		return &domain.PlacementSelection{AccountID: accountID, Mode: domain.PlacementBatch}, nil, nil
	}
	return s.priced(ctx, sel)
}

func (s *placementService) priced(ctx context.Context, sel *domain.PlacementSelection) (*domain.PlacementSelection, *domain.Quote, error) {
	if len(sel.Picks) == 0 {
		return sel, nil, nil
	}
	q, err := s.Quote(ctx, sel.Picks, sel.Mode)
	if err != nil {
		return nil, nil, err
	}
	return sel, q, nil
}

// AddToCart stages a pick. A single placement cart holds only the latest pick,
// and switching modes starts the cart over.
func (s *placementService) AddToCart(ctx context.Context, accountID int64, mode domain.PlacementMode, pick domain.Pick) (*domain.PlacementSelection, *domain.Quote, error) {
	if !mode.Valid() {
		return nil, nil, validationf("unknown placement mode %q", mode)
	}
	if err := pick.Validate(); err != nil {
		return nil, nil, err
	}
	sel, err := s.carts.Load(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if sel == nil || sel.Mode != mode {
		sel = &domain.PlacementSelection{AccountID: accountID, Mode: mode}
	}
	if mode == domain.PlacementSingle {
		sel.Picks = []domain.Pick{pick}
	} else {
		sel.Put(pick)
	}
	sel.UpdatedAt = s.collab.now()

	_, q, err := s.priced(ctx, sel)
	if err != nil {
		return nil, nil, err
	}
	if err := s.carts.Save(ctx, sel); err != nil {
		return nil, nil, err
	}
	return sel, q, nil
}

func (s *placementService) RemoveFromCart(ctx context.Context, accountID, channelID int64) (*domain.PlacementSelection, *domain.Quote, error) {
	sel, err := s.carts.Load(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if sel == nil || !sel.Remove(channelID) {
		return nil, nil, fmt.Errorf("channel %d in cart: %w", channelID, domain.ErrNotFound)
	}
	sel.UpdatedAt = s.collab.now()
	if err := s.carts.Save(ctx, sel); err != nil {
		return nil, nil, err
	}
	return s.priced(ctx, sel)
}

func (s *placementService) AbandonCart(ctx context.Context, accountID int64) error {
	return s.carts.Delete(ctx, accountID)
}

func (s *placementService) Checkout(ctx context.Context, accountID int64, sub domain.AdSubmission, quotedTotal decimal.Decimal) (*domain.Placement, error) {
	sel, err := s.carts.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if sel == nil || len(sel.Picks) == 0 {
		return nil, validationf("placement cart is empty")
	}
	placement, err := s.Purchase(ctx, accountID, sub, sel.Picks, sel.Mode, quotedTotal)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, accountID); err != nil {
		logger.Warn("Failed to clear placement cart", "account_id", accountID, "error", err)
	}
	return placement, nil
}
