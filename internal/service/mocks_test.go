package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/policy"
	"adboard-backend/internal/pricing"
	"adboard-backend/internal/repository/memory"
	"adboard-backend/internal/service"
)

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, chatID int64, ad *domain.Ad, pin bool) error {
	args := m.Called(ctx, chatID, ad, pin)
	return args.Error(0)
}

// recorder collects notifications, alerts and events.
type recorder struct {
	mu      sync.Mutex
	notices map[int64][]string
	alerts  []string
	events  []string
}

func newRecorder() *recorder {
	return &recorder{notices: map[int64][]string{}}
}

func (r *recorder) Notify(ctx context.Context, accountID int64, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[accountID] = append(r.notices[accountID], message)
	return nil
}

func (r *recorder) AlertStaff(ctx context.Context, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, subject)
	return nil
}

func (r *recorder) Publish(ctx context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, routingKey)
	return nil
}

func (r *recorder) noticesFor(id int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices[id]...)
}

// memCarts is an in-test cart store.
type memCarts struct {
	mu    sync.Mutex
	carts map[int64]domain.PlacementSelection
}

func (c *memCarts) Load(ctx context.Context, accountID int64) (*domain.PlacementSelection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, ok := c.carts[accountID]
	if !ok {
		return nil, nil
	}
	sel.Picks = append([]domain.Pick(nil), sel.Picks...)
	return &sel, nil
}

func (c *memCarts) Save(ctx context.Context, sel *domain.PlacementSelection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.carts == nil {
		c.carts = map[int64]domain.PlacementSelection{}
	}
	cp := *sel
	cp.Picks = append([]domain.Pick(nil), sel.Picks...)
	c.carts[sel.AccountID] = cp
	return nil
}

func (c *memCarts) Delete(ctx context.Context, accountID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, accountID)
	return nil
}

const staffID int64 = 900

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *memory.Store
	rec       *recorder
	publisher *MockPublisher
	clock     *clock
	settings  service.Settings

	accounts  service.AccountService
	ledger    service.LedgerService
	channels  service.ChannelService
	ads       service.AdService
	sales     service.SaleService
	funding   service.FundingService
	placement service.PlacementService
	reposts   service.RepostService
	carts     *memCarts
	chats     int64
}

func newFixture() *fixture {
	f := &fixture{
		store:     memory.NewStore(),
		rec:       newRecorder(),
		publisher: new(MockPublisher),
		clock:     &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		carts:     &memCarts{},
		settings: service.Settings{
			AdLifetime:        30 * 24 * time.Hour,
			ExtensionWindow:   3 * 24 * time.Hour,
			MarketingChatID:   -1001,
			ExchangeChatID:    -1002,
			MinWithdrawal:     decimal.NewFromInt(100),
			RepostInterval:    24 * time.Hour,
			RepostBatchSize:   100,
			RepostMaxFailures: 3,
		},
	}
	collab := service.Collaborators{
		Publisher: f.publisher,
		Notifier:  f.rec,
		Alerter:   f.rec,
		Events:    f.rec,
		Clock:     f.clock.Now,
	}
	staff := policy.NewStaff([]int64{staffID})
	engine := pricing.NewEngine(pricing.DefaultPinMultiplier, pricing.DefaultFees)

	f.accounts = service.NewAccountService(f.store, staff, collab)
	f.ledger = service.NewLedgerService(f.store, staff, collab)
	f.channels = service.NewChannelService(f.store, staff, collab)
	f.ads = service.NewAdService(f.store, staff, collab, f.settings)
	f.sales = service.NewSaleService(f.store, staff, collab)
	f.funding = service.NewFundingService(f.store, staff, collab, f.settings)
	f.placement = service.NewPlacementService(f.store, engine, f.carts, collab, f.settings)
	f.reposts = service.NewRepostService(f.store, f.store, collab, f.settings)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// account creates an account holding balance.
func (f *fixture) account(id int64, balance string) {
	ctx := context.Background()
	if _, err := f.accounts.Ensure(ctx, id, "user"); err != nil {
		panic(err)
	}
	if b := dec(balance); b.IsPositive() {
		if _, err := f.store.Repos().Ledger.Credit(ctx, id, b); err != nil {
			panic(err)
		}
	}
}

func (f *fixture) balance(id int64) decimal.Decimal {
	b, err := f.store.Repos().Ledger.Balance(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return b
}

// approvedAd creates an approved, active ad owned by ownerID.
func (f *fixture) approvedAd(ownerID int64, price string) *domain.Ad {
	ctx := context.Background()
	ad, err := f.ads.Submit(ctx, ownerID, domain.AdSubmission{Text: "Bike for sale", Price: dec(price)})
	if err != nil {
		panic(err)
	}
	ad, err = f.ads.Approve(ctx, staffID, ad.ID)
	if err != nil {
		panic(err)
	}
	return ad
}

func (f *fixture) channel(title string, p1, p5, p10 string) *domain.Channel {
	f.chats++
	ch := &domain.Channel{
		ChatID:     -2000 - f.chats,
		Title:      title,
		Region:     domain.RegionMoscow,
		PriceFor1:  dec(p1),
		PriceFor5:  dec(p5),
		PriceFor10: dec(p10),
		Active:     true,
	}
	if err := f.channels.Create(context.Background(), staffID, ch); err != nil {
		panic(err)
	}
	return ch
}
