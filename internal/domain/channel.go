package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Region string

const (
	RegionMoscow   Region = "moscow"
	RegionMoscowOb Region = "mo"
	RegionRussia   Region = "rf"
)

func (r Region) Valid() bool {
	switch r {
	case RegionMoscow, RegionMoscowOb, RegionRussia:
		return true
	}
	return false
}

// Channel is a publication destination with its placement price table.
// PriceForPin is the listed pin price; placement pricing derives pins from PriceFor1.
type Channel struct {
	ID           int64           `json:"id"`
	ChatID       int64           `json:"chat_id"`
	Title        string          `json:"title"`
	Region       Region          `json:"region"`
	PriceFor1    decimal.Decimal `json:"price_for_1"`
	PriceFor5    decimal.Decimal `json:"price_for_5"`
	PriceFor10   decimal.Decimal `json:"price_for_10"`
	PriceForPin  decimal.Decimal `json:"price_for_pin"`
	Participants int             `json:"participants"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (c *Channel) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: channel title is required", ErrValidation)
	}
	if c.ChatID == 0 {
		return fmt.Errorf("%w: channel chat id is required", ErrValidation)
	}
	if !c.Region.Valid() {
		return fmt.Errorf("%w: unknown region %q", ErrValidation, c.Region)
	}
	for name, p := range map[string]decimal.Decimal{
		"price_for_1": c.PriceFor1, "price_for_5": c.PriceFor5,
		"price_for_10": c.PriceFor10, "price_for_pin": c.PriceForPin,
	} {
		if err := ValidatePrice(name, p); err != nil {
			return err
		}
	}
	if c.Active && !c.PriceFor1.IsPositive() {
		return fmt.Errorf("%w: active channel needs a positive price_for_1", ErrValidation)
	}
	if c.Participants < 0 {
		return fmt.Errorf("%w: participants must not be negative", ErrValidation)
	}
	return nil
}
