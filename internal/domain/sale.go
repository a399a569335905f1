package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCanceled  SaleStatus = "canceled"
)

type Sale struct {
	ID       int64 `json:"id"`
	AdID     int64 `json:"ad_id"`
	BuyerID  int64 `json:"buyer_id"`
	SellerID int64 `json:"seller_id"`
	// Amount is the ad price captured when the buyer's funds were reserved.
	Amount    decimal.Decimal `json:"amount"`
	Status    SaleStatus      `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}
