package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PlacementMode string

const (
	// PlacementBatch places one ad into several channels at once.
	PlacementBatch PlacementMode = "batch"
	// PlacementSingle places one ad into exactly one channel.
	PlacementSingle PlacementMode = "single"
)

func (m PlacementMode) Valid() bool {
	return m == PlacementBatch || m == PlacementSingle
}

// Pick is one channel choice in a placement cart: a repost count or a pin.
type Pick struct {
	ChannelID int64 `json:"channel_id"`
	Quantity  int   `json:"quantity"`
	Pin       bool  `json:"pin"`
}

func (p Pick) Validate() error {
	if p.ChannelID <= 0 {
		return fmt.Errorf("%w: channel id is required", ErrValidation)
	}
	if !p.Pin && p.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	return nil
}

// Runs is the number of scheduled publications the pick buys.
func (p Pick) Runs() int {
	if p.Pin {
		return 1
	}
	return p.Quantity
}

type PlacementLine struct {
	ChannelID    int64           `json:"channel_id"`
	ChannelTitle string          `json:"channel_title"`
	Quantity     int             `json:"quantity"`
	Pin          bool            `json:"pin"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Cost         decimal.Decimal `json:"cost"`
}

type Quote struct {
	Mode           PlacementMode   `json:"mode"`
	Lines          []PlacementLine `json:"lines"`
	PlacementTotal decimal.Decimal `json:"placement_total"`
	MarkingFee     decimal.Decimal `json:"marking_fee"`
	Total          decimal.Decimal `json:"total"`
}

// PlacementSelection is the staged cart of an in-progress placement purchase.
// It lives only in the session store.
type PlacementSelection struct {
	AccountID int64         `json:"account_id"`
	Mode      PlacementMode `json:"mode"`
	Picks     []Pick        `json:"picks"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Put adds the pick, replacing an earlier pick for the same channel.
func (s *PlacementSelection) Put(p Pick) {
	for i := range s.Picks {
		if s.Picks[i].ChannelID == p.ChannelID {
			s.Picks[i] = p
			return
		}
	}
	s.Picks = append(s.Picks, p)
}

// Remove drops the pick for channelID and reports whether one existed.
func (s *PlacementSelection) Remove(channelID int64) bool {
	for i := range s.Picks {
		if s.Picks[i].ChannelID == channelID {
			s.Picks = append(s.Picks[:i], s.Picks[i+1:]...)
			return true
		}
	}
	return false
}

// Placement is the result of a completed purchase.
type Placement struct {
	Quote   *Quote            `json:"quote"`
	Ads     []Ad              `json:"ads"`
	Reposts []ScheduledRepost `json:"reposts"`
}
