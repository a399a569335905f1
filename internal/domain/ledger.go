package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AdjustmentMode string

const (
	AdjustmentCredit AdjustmentMode = "credit"
	AdjustmentDebit  AdjustmentMode = "debit"
	AdjustmentSet    AdjustmentMode = "set"
)

func (m AdjustmentMode) Valid() bool {
	switch m {
	case AdjustmentCredit, AdjustmentDebit, AdjustmentSet:
		return true
	}
	return false
}

// BalanceAdjustment is the record of a manual staff correction to an account balance.
type BalanceAdjustment struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"account_id"`
	StaffID       int64           `json:"staff_id"`
	Mode          AdjustmentMode  `json:"mode"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ValidatePrice rejects negative prices and prices with fractional kopecks.
func ValidatePrice(name string, p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrValidation, name)
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("%w: %s %s has more than two decimal places", ErrValidation, name, p.String())
	}
	return nil
}
