package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

type AccountService interface {
	Ensure(ctx context.Context, id int64, username string) (*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	UpdateVerification(ctx context.Context, actorID, accountID int64, v domain.Verification) error
	Ban(ctx context.Context, staffID, accountID int64, reason string, until *time.Time) error
	Unban(ctx context.Context, staffID, accountID int64) error
	Broadcast(ctx context.Context, staffID int64, message string) (int, error)
	LiftExpiredBans(ctx context.Context) (int64, error)
}

type LedgerService interface {
	Balance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Adjust(ctx context.Context, staffID, accountID int64, mode domain.AdjustmentMode, amount decimal.Decimal, note string) (*domain.BalanceAdjustment, error)
}

type ChannelService interface {
	Create(ctx context.Context, staffID int64, ch *domain.Channel) error
	Update(ctx context.Context, staffID int64, ch *domain.Channel) error
	Get(ctx context.Context, id int64) (*domain.Channel, error)
	List(ctx context.Context, region domain.Region, activeOnly bool) ([]domain.Channel, error)
}

type AdService interface {
	Submit(ctx context.Context, ownerID int64, sub domain.AdSubmission) (*domain.Ad, error)
	Get(ctx context.Context, viewerID, adID int64) (*domain.Ad, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ad, error)
	Search(ctx context.Context, filter domain.AdFilter) ([]domain.Ad, error)
	Approve(ctx context.Context, staffID, adID int64) (*domain.Ad, error)
	Reject(ctx context.Context, staffID, adID int64) (*domain.Ad, error)
	Publish(ctx context.Context, staffID, adID int64) (*PublishResult, error)
	ApproveAndPublish(ctx context.Context, staffID, adID int64) (*PublishResult, error)
	EditText(ctx context.Context, staffID, adID int64, text string) (*domain.Ad, error)
	EditPrice(ctx context.Context, staffID, adID int64, price decimal.Decimal) (*domain.Ad, error)
	Deactivate(ctx context.Context, staffID, adID int64) (*domain.Ad, error)
	RequestExtension(ctx context.Context, ownerID, adID int64) (*domain.ExtensionRequest, error)
	ApproveExtension(ctx context.Context, staffID, requestID int64) (*domain.Ad, error)
	RejectExtension(ctx context.Context, staffID, requestID int64) (*domain.ExtensionRequest, error)
	ExpireStale(ctx context.Context) (int, error)
}

type SaleService interface {
	Reserve(ctx context.Context, buyerID, adID int64) (*domain.Sale, error)
	Complete(ctx context.Context, buyerID, saleID int64) (*domain.Sale, error)
	Cancel(ctx context.Context, buyerID, saleID int64) (*domain.Sale, error)
	Get(ctx context.Context, viewerID, saleID int64) (*domain.Sale, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Sale, error)
}

type FundingService interface {
	RequestTopUp(ctx context.Context, accountID int64, amount decimal.Decimal, paymentSystem, receipt string) (*domain.FundingRequest, error)
	RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, destination string) (*domain.FundingRequest, error)
	Approve(ctx context.Context, staffID, requestID int64) (*domain.FundingRequest, error)
	Reject(ctx context.Context, staffID, requestID int64) (*domain.FundingRequest, error)
	ListPending(ctx context.Context, staffID int64) ([]domain.FundingRequest, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.FundingRequest, error)
}

type PlacementService interface {
	Quote(ctx context.Context, picks []domain.Pick, mode domain.PlacementMode) (*domain.Quote, error)
	Purchase(ctx context.Context, accountID int64, sub domain.AdSubmission, picks []domain.Pick, mode domain.PlacementMode, quotedTotal decimal.Decimal) (*domain.Placement, error)

	Cart(ctx context.Context, accountID int64) (*domain.PlacementSelection, *domain.Quote, error)
	AddToCart(ctx context.Context, accountID int64, mode domain.PlacementMode, pick domain.Pick) (*domain.PlacementSelection, *domain.Quote, error)
	RemoveFromCart(ctx context.Context, accountID, channelID int64) (*domain.PlacementSelection, *domain.Quote, error)
	AbandonCart(ctx context.Context, accountID int64) error
	Checkout(ctx context.Context, accountID int64, sub domain.AdSubmission, quotedTotal decimal.Decimal) (*domain.Placement, error)
}

type RepostService interface {
	PublishDue(ctx context.Context) (*RepostReport, error)
}

// Settings are the business constants the services run with.
type Settings struct {
	AdLifetime      time.Duration
	ExtensionWindow time.Duration
	MarketingChatID int64
	ExchangeChatID  int64
	MinWithdrawal   decimal.Decimal
	RepostInterval  time.Duration
	RepostBatchSize int
	// RepostMaxFailures is how many consecutive failed publications consume
	// a run anyway. Zero means DefaultRepostMaxFailures.
	RepostMaxFailures int
}

// PublishResult tells staff where an ad went and whether delivery succeeded.
type PublishResult struct {
	Ad          *domain.Ad `json:"ad"`
	Destination int64      `json:"destination"`
	Delivered   bool       `json:"delivered"`
}

// RepostReport summarizes one scheduler tick. Contended is set when another
// scheduler held the tick lock and nothing was attempted.
type RepostReport struct {
	Due       int  `json:"due"`
	Published int  `json:"published"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Abandoned int  `json:"abandoned"`
	Finished  int  `json:"finished"`
	Contended bool `json:"contended"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}
