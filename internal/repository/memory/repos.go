package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

type accountRepository struct{ binding }

func (r *accountRepository) Upsert(ctx context.Context, id int64, username string, seenAt time.Time) (*domain.Account, error) {
	defer r.lock()()
	st := r.st()
	a, ok := st.accounts[id]
	if !ok {
		a = domain.Account{ID: id, Balance: decimal.Zero, CreatedAt: seenAt}
	}
	a.Username = username
	a.LastActiveAt = seenAt
	st.accounts[id] = a
	return &a, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	defer r.lock()()
	a, ok := r.st().accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (r *accountRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Account, error) {
	defer r.lock()()
	var out []domain.Account
	for _, a := range r.st().accounts {
		if !a.IsBanned(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *accountRepository) UpdateVerification(ctx context.Context, id int64, v domain.Verification) error {
	defer r.lock()()
	st := r.st()
	a, ok := st.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	a.LegalName, a.TaxID, a.CompanyName = v.LegalName, v.TaxID, v.CompanyName
	st.accounts[id] = a
	return nil
}

func (r *accountRepository) SetBan(ctx context.Context, id int64, banned bool, reason string, until *time.Time) error {
	defer r.lock()()
	st := r.st()
	a, ok := st.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	a.Banned, a.BanReason, a.BanUntil = banned, reason, until
	st.accounts[id] = a
	return nil
}

func (r *accountRepository) LiftExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	defer r.lock()()
	st := r.st()
	var n int64
	for id, a := range st.accounts {
		if a.Banned && a.BanUntil != nil && !now.Before(*a.BanUntil) {
			a.Banned, a.BanReason, a.BanUntil = false, "", nil
			st.accounts[id] = a
			n++
		}
	}
	return n, nil
}

type ledgerRepository struct{ binding }

func (r *ledgerRepository) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	defer r.lock()()
	a, ok := r.st().accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	return a.Balance, nil
}

func (r *ledgerRepository) LockBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return r.Balance(ctx, accountID)
}

func (r *ledgerRepository) Credit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	defer r.lock()()
	st := r.st()
	a, ok := st.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	a.Balance = a.Balance.Add(amount)
	st.accounts[accountID] = a
	return a.Balance, nil
}

func (r *ledgerRepository) Debit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	defer r.lock()()
	st := r.st()
	a, ok := st.accounts[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	if a.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("debit %s from account %d: %w", amount, accountID, domain.ErrInsufficientFunds)
	}
	a.Balance = a.Balance.Sub(amount)
	st.accounts[accountID] = a
	return a.Balance, nil
}

func (r *ledgerRepository) RecordAdjustment(ctx context.Context, adj *domain.BalanceAdjustment) error {
	defer r.lock()()
	st := r.st()
	adj.ID = st.nextID()
	st.adjustments = append(st.adjustments, *adj)
	return nil
}

type adRepository struct{ binding }

func (r *adRepository) Create(ctx context.Context, ad *domain.Ad) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.accounts[ad.OwnerID]; !ok {
		return fmt.Errorf("ad owner %d: %w", ad.OwnerID, domain.ErrNotFound)
	}
	ad.ID = st.nextID()
	stored := *ad
	stored.Photos = append([]string(nil), ad.Photos...)
	st.ads[ad.ID] = stored
	return nil
}

func (r *adRepository) GetByID(ctx context.Context, id int64) (*domain.Ad, error) {
	defer r.lock()()
	ad, ok := r.st().ads[id]
	if !ok {
		return nil, fmt.Errorf("ad %d: %w", id, domain.ErrNotFound)
	}
	ad.Photos = append([]string(nil), ad.Photos...)
	return &ad, nil
}

func (r *adRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ad, error) {
	return r.GetByID(ctx, id)
}

func (r *adRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.ModerationStatus, at time.Time) (bool, error) {
	defer r.lock()()
	st := r.st()
	ad, ok := st.ads[id]
	if !ok || ad.Status != from {
		return false, nil
	}
	ad.Status, ad.UpdatedAt = to, at
	st.ads[id] = ad
	return true, nil
}

func (r *adRepository) modify(id int64, fn func(ad *domain.Ad)) error {
	defer r.lock()()
	st := r.st()
	ad, ok := st.ads[id]
	if !ok {
		return fmt.Errorf("ad %d: %w", id, domain.ErrNotFound)
	}
	fn(&ad)
	st.ads[id] = ad
	return nil
}

func (r *adRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	return r.modify(id, func(ad *domain.Ad) { ad.Active, ad.UpdatedAt = active, at })
}

func (r *adRepository) UpdateText(ctx context.Context, id int64, text string, at time.Time) error {
	return r.modify(id, func(ad *domain.Ad) { ad.Text, ad.UpdatedAt = text, at })
}

func (r *adRepository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	return r.modify(id, func(ad *domain.Ad) { ad.Price, ad.UpdatedAt = price, at })
}

func (r *adRepository) Renew(ctx context.Context, id int64, at time.Time) error {
	return r.modify(id, func(ad *domain.Ad) { ad.CreatedAt, ad.UpdatedAt, ad.Active = at, at, true })
}

func (r *adRepository) list(match func(ad *domain.Ad) bool) []domain.Ad {
	defer r.lock()()
	var out []domain.Ad
	for _, ad := range r.st().ads {
		if match(&ad) {
			ad.Photos = append([]string(nil), ad.Photos...)
			out = append(out, ad)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *adRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ad, error) {
	return r.list(func(ad *domain.Ad) bool { return ad.OwnerID == ownerID }), nil
}

func (r *adRepository) Search(ctx context.Context, filter domain.AdFilter) ([]domain.Ad, error) {
	q := strings.ToLower(filter.Query)
	ads := r.list(func(ad *domain.Ad) bool {
		if !ad.Publishable() {
			return false
		}
		if filter.Category != "" && ad.Category != filter.Category {
			return false
		}
		if filter.City != "" && ad.City != filter.City {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(ad.Text), q) && !strings.Contains(strings.ToLower(ad.Title), q) {
			return false
		}
		return true
	})
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if filter.Offset >= len(ads) {
		return nil, nil
	}
	ads = ads[filter.Offset:]
	if len(ads) > limit {
		ads = ads[:limit]
	}
	return ads, nil
}

func (r *adRepository) ListExpired(ctx context.Context, createdBefore time.Time) ([]domain.Ad, error) {
	return r.list(func(ad *domain.Ad) bool {
		return ad.Publishable() && ad.CreatedAt.Before(createdBefore)
	}), nil
}

type extensionRepository struct{ binding }

func (r *extensionRepository) Create(ctx context.Context, req *domain.ExtensionRequest) error {
	defer r.lock()()
	st := r.st()
	for _, e := range st.extensions {
		if e.AdID == req.AdID && e.Status == domain.ExtensionPending {
			return fmt.Errorf("%w: ad %d already has a pending extension request", domain.ErrAlreadyProcessed, req.AdID)
		}
	}
	req.ID = st.nextID()
	st.extensions[req.ID] = *req
	return nil
}

func (r *extensionRepository) GetByID(ctx context.Context, id int64) (*domain.ExtensionRequest, error) {
	defer r.lock()()
	e, ok := r.st().extensions[id]
	if !ok {
		return nil, fmt.Errorf("extension request %d: %w", id, domain.ErrNotFound)
	}
	return &e, nil
}

func (r *extensionRepository) FindPendingForAd(ctx context.Context, adID int64) (*domain.ExtensionRequest, error) {
	defer r.lock()()
	for _, e := range r.st().extensions {
		if e.AdID == adID && e.Status == domain.ExtensionPending {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *extensionRepository) Decide(ctx context.Context, id int64, to domain.ExtensionStatus, staffID int64, at time.Time) (bool, error) {
	defer r.lock()()
	st := r.st()
	e, ok := st.extensions[id]
	if !ok || e.Status != domain.ExtensionPending {
		return false, nil
	}
	e.Status, e.DecidedAt, e.DecidedBy = to, &at, &staffID
	st.extensions[id] = e
	return true, nil
}

type channelRepository struct{ binding }

func (r *channelRepository) Create(ctx context.Context, ch *domain.Channel) error {
	defer r.lock()()
	st := r.st()
	for _, c := range st.channels {
		if c.ChatID == ch.ChatID {
			return fmt.Errorf("%w: channel with chat id %d already exists", domain.ErrValidation, ch.ChatID)
		}
	}
	ch.ID = st.nextID()
	st.channels[ch.ID] = *ch
	return nil
}

func (r *channelRepository) Update(ctx context.Context, ch *domain.Channel) error {
	defer r.lock()()
	st := r.st()
	if _, ok := st.channels[ch.ID]; !ok {
		return fmt.Errorf("channel %d: %w", ch.ID, domain.ErrNotFound)
	}
	st.channels[ch.ID] = *ch
	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	defer r.lock()()
	c, ok := r.st().channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %d: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (r *channelRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Channel, error) {
	defer r.lock()()
	st := r.st()
	out := make(map[int64]*domain.Channel, len(ids))
	for _, id := range ids {
		if c, ok := st.channels[id]; ok {
			out[id] = &c
		}
	}
	return out, nil
}

func (r *channelRepository) List(ctx context.Context, region domain.Region, activeOnly bool) ([]domain.Channel, error) {
	defer r.lock()()
	var out []domain.Channel
	for _, c := range r.st().channels {
		if (region == "" || c.Region == region) && (!activeOnly || c.Active) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

type saleRepository struct{ binding }

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	defer r.lock()()
	st := r.st()
	sale.ID = st.nextID()
	st.sales[sale.ID] = *sale
	return nil
}

func (r *saleRepository) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	defer r.lock()()
	s, ok := r.st().sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d: %w", id, domain.ErrNotFound)
	}
	return &s, nil
}

func (r *saleRepository) Settle(ctx context.Context, id int64, to domain.SaleStatus, at time.Time) (bool, error) {
	defer r.lock()()
	st := r.st()
	s, ok := st.sales[id]
	if !ok || s.Status != domain.SaleStatusPending {
		return false, nil
	}
	s.Status, s.SettledAt = to, &at
	st.sales[id] = s
	return true, nil
}

func (r *saleRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Sale, error) {
	defer r.lock()()
	var out []domain.Sale
	for _, s := range r.st().sales {
		if s.BuyerID == accountID || s.SellerID == accountID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fundingRepository struct{ binding }

func (r *fundingRepository) Create(ctx context.Context, req *domain.FundingRequest) error {
	defer r.lock()()
	st := r.st()
	req.ID = st.nextID()
	st.funding[req.ID] = *req
	return nil
}

func (r *fundingRepository) GetByID(ctx context.Context, id int64) (*domain.FundingRequest, error) {
	defer r.lock()()
	f, ok := r.st().funding[id]
	if !ok {
		return nil, fmt.Errorf("funding request %d: %w", id, domain.ErrNotFound)
	}
	return &f, nil
}

func (r *fundingRepository) Decide(ctx context.Context, id int64, to domain.FundingStatus, staffID int64, at time.Time) (bool, error) {
	defer r.lock()()
	st := r.st()
	f, ok := st.funding[id]
	if !ok || f.Status != domain.FundingPending {
		return false, nil
	}
	f.Status, f.DecidedAt, f.DecidedBy = to, &at, &staffID
	st.funding[id] = f
	return true, nil
}

func (r *fundingRepository) filter(match func(f *domain.FundingRequest) bool) []domain.FundingRequest {
	defer r.lock()()
	var out []domain.FundingRequest
	for _, f := range r.st().funding {
		if match(&f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fundingRepository) ListByStatus(ctx context.Context, status domain.FundingStatus) ([]domain.FundingRequest, error) {
	return r.filter(func(f *domain.FundingRequest) bool { return f.Status == status }), nil
}

func (r *fundingRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.FundingRequest, error) {
	return r.filter(func(f *domain.FundingRequest) bool { return f.AccountID == accountID }), nil
}

type repostRepository struct{ binding }

func (r *repostRepository) Create(ctx context.Context, rp *domain.ScheduledRepost) error {
	defer r.lock()()
	st := r.st()
	rp.ID = st.nextID()
	st.reposts[rp.ID] = *rp
	return nil
}

func (r *repostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueRepost, error) {
	defer r.lock()()
	st := r.st()
	var due []domain.DueRepost
	for _, rp := range st.reposts {
		if !rp.Due(now) {
			continue
		}
		ad, ok := st.ads[rp.AdID]
		if !ok || ad.Status == domain.ModerationPending {
			continue
		}
		ch, ok := st.channels[rp.ChannelID]
		if !ok {
			continue
		}
		due = append(due, domain.DueRepost{Repost: rp, ChannelChat: ch.ChatID})
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].Repost, due[j].Repost
		if a.NextRunAt.Equal(b.NextRunAt) {
			return a.ID < b.ID
		}
		return a.NextRunAt.Before(b.NextRunAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *repostRepository) Reschedule(ctx context.Context, id int64, expectedRuns, remaining int, next time.Time) (bool, error) {
	defer r.lock()()
	st := r.st()
	rp, ok := st.reposts[id]
	if !ok || rp.RemainingRuns != expectedRuns {
		return false, nil
	}
	rp.RemainingRuns, rp.NextRunAt, rp.Failures = remaining, next, 0
	st.reposts[id] = rp
	return true, nil
}

func (r *repostRepository) RecordFailure(ctx context.Context, id int64, expectedRuns int) (bool, error) {
	defer r.lock()()
	st := r.st()
	rp, ok := st.reposts[id]
	if !ok || rp.RemainingRuns != expectedRuns {
		return false, nil
	}
	rp.Failures++
	st.reposts[id] = rp
	return true, nil
}

func (r *repostRepository) Delete(ctx context.Context, id int64, expectedRuns int) (bool, error) {
	defer r.lock()()
	st := r.st()
	rp, ok := st.reposts[id]
	if !ok || rp.RemainingRuns != expectedRuns {
		return false, nil
	}
	delete(st.reposts, id)
	return true, nil
}

func (r *repostRepository) ListByAd(ctx context.Context, adID int64) ([]domain.ScheduledRepost, error) {
	defer r.lock()()
	var out []domain.ScheduledRepost
	for _, rp := range r.st().reposts {
		if rp.AdID == adID {
			out = append(out, rp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
