package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	Balance      decimal.Decimal `json:"balance"`
	Banned       bool            `json:"banned"`
	BanReason    string          `json:"ban_reason,omitempty"`
	BanUntil     *time.Time      `json:"ban_until,omitempty"`
	LegalName    string          `json:"legal_name"`
	TaxID        string          `json:"tax_id"`
	CompanyName  string          `json:"company_name"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActiveAt time.Time       `json:"last_active_at"`
}

// IsBanned reports whether the ban is still in force at now. A ban without an
// end time is permanent.
func (a *Account) IsBanned(now time.Time) bool {
	if !a.Banned {
		return false
	}
	return a.BanUntil == nil || now.Before(*a.BanUntil)
}

type Verification struct {
	LegalName   string `json:"legal_name"`
	TaxID       string `json:"tax_id"`
	CompanyName string `json:"company_name"`
}
