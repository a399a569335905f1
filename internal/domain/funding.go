package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundingKind string

const (
	FundingTopUp      FundingKind = "topup"
	FundingWithdrawal FundingKind = "withdrawal"
)

type FundingStatus string

const (
	FundingPending  FundingStatus = "pending"
	FundingApproved FundingStatus = "approved"
	FundingRejected FundingStatus = "rejected"
)

// FundingRequest is a top-up or a withdrawal awaiting a staff decision.
// Reference holds the receipt for top-ups and the payout destination for withdrawals.
type FundingRequest struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"account_id"`
	Kind          FundingKind     `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Status        FundingStatus   `json:"status"`
	PaymentSystem string          `json:"payment_system,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	DecidedBy     *int64          `json:"decided_by,omitempty"`
}
