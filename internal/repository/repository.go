package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

type AccountRepository interface {
	// Upsert creates the account on first sight and refreshes username and activity otherwise.
	Upsert(ctx context.Context, id int64, username string, seenAt time.Time) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	ListActive(ctx context.Context, now time.Time) ([]domain.Account, error)
	UpdateVerification(ctx context.Context, id int64, v domain.Verification) error
	SetBan(ctx context.Context, id int64, banned bool, reason string, until *time.Time) error
	LiftExpiredBans(ctx context.Context, now time.Time) (int64, error)
}

// LedgerRepository owns account balances. Debit never drives a balance below zero.
type LedgerRepository interface {
	Balance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	// LockBalance reads the balance and holds it for the rest of the unit of work.
	LockBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Credit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	RecordAdjustment(ctx context.Context, adj *domain.BalanceAdjustment) error
}

type AdRepository interface {
	Create(ctx context.Context, ad *domain.Ad) error
	GetByID(ctx context.Context, id int64) (*domain.Ad, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Ad, error)
	// UpdateStatus moves the ad from one status to another and reports whether it did.
	UpdateStatus(ctx context.Context, id int64, from, to domain.ModerationStatus, at time.Time) (bool, error)
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
	UpdateText(ctx context.Context, id int64, text string, at time.Time) error
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error
	Renew(ctx context.Context, id int64, at time.Time) error
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ad, error)
	Search(ctx context.Context, filter domain.AdFilter) ([]domain.Ad, error)
	ListExpired(ctx context.Context, createdBefore time.Time) ([]domain.Ad, error)
}

type ExtensionRepository interface {
	Create(ctx context.Context, req *domain.ExtensionRequest) error
	GetByID(ctx context.Context, id int64) (*domain.ExtensionRequest, error)
	FindPendingForAd(ctx context.Context, adID int64) (*domain.ExtensionRequest, error)
	Decide(ctx context.Context, id int64, to domain.ExtensionStatus, staffID int64, at time.Time) (bool, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, ch *domain.Channel) error
	Update(ctx context.Context, ch *domain.Channel) error
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Channel, error)
	List(ctx context.Context, region domain.Region, activeOnly bool) ([]domain.Channel, error)
}

type SaleRepository interface {
	Create(ctx context.Context, sale *domain.Sale) error
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)
	// Settle moves a pending sale to a terminal status and reports whether it did.
	Settle(ctx context.Context, id int64, to domain.SaleStatus, at time.Time) (bool, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Sale, error)
}

type FundingRepository interface {
	Create(ctx context.Context, req *domain.FundingRequest) error
	GetByID(ctx context.Context, id int64) (*domain.FundingRequest, error)
	// Decide moves a pending request to a final status and reports whether it did.
	Decide(ctx context.Context, id int64, to domain.FundingStatus, staffID int64, at time.Time) (bool, error)
	ListByStatus(ctx context.Context, status domain.FundingStatus) ([]domain.FundingRequest, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.FundingRequest, error)
}

type RepostRepository interface {
	Create(ctx context.Context, r *domain.ScheduledRepost) error
	// ListDue returns reposts due at now whose ad has left moderation.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueRepost, error)
	// Reschedule stores the advanced row if it still has expectedRuns remaining
	// and clears its failure count.
	Reschedule(ctx context.Context, id int64, expectedRuns, remaining int, next time.Time) (bool, error)
	// RecordFailure bumps the failure count if the row still has expectedRuns remaining.
	RecordFailure(ctx context.Context, id int64, expectedRuns int) (bool, error)
	// Delete removes the row if it still has expectedRuns remaining.
	Delete(ctx context.Context, id int64, expectedRuns int) (bool, error)
	ListByAd(ctx context.Context, adID int64) ([]domain.ScheduledRepost, error)
}

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Accounts   AccountRepository
	Ledger     LedgerRepository
	Ads        AdRepository
	Extensions ExtensionRepository
	Channels   ChannelRepository
	Sales      SaleRepository
	Funding    FundingRepository
	Reposts    RepostRepository
}

// Locker hands out named locks that exclude every other holder, including
// other processes sharing the same database. unlock must be called once ok is true.
type Locker interface {
	TryLock(ctx context.Context, name string) (unlock func(), ok bool, err error)
}

// UnitOfWork runs fn atomically. Any error returned by fn rolls back every write made through repos.
type UnitOfWork interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
