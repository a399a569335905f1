package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAd_CanModerate(t *testing.T) {
	tests := []struct {
		from ModerationStatus
		to   ModerationStatus
		want bool
	}{
		{ModerationPending, ModerationApproved, true},
		{ModerationPending, ModerationRejected, true},
		{ModerationApproved, ModerationRejected, true},
		{ModerationApproved, ModerationApproved, false},
		{ModerationRejected, ModerationApproved, false},
		{ModerationRejected, ModerationRejected, false},
		{ModerationApproved, ModerationPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			ad := &Ad{Status: tt.from}
			assert.Equal(t, tt.want, ad.CanModerate(tt.to))
		})
	}
}

func TestAd_ExtensionEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 30 * 24 * time.Hour
	window := 5 * 24 * time.Hour

	t.Run("Inactive", func(t *testing.T) {
		ad := &Ad{Active: false, CreatedAt: now}
		assert.True(t, ad.ExtensionEligible(now, lifetime, window))
	})
	t.Run("Fresh", func(t *testing.T) {
		ad := &Ad{Active: true, CreatedAt: now.Add(-10 * 24 * time.Hour)}
		assert.False(t, ad.ExtensionEligible(now, lifetime, window))
	})
	t.Run("FiveDaysLeft", func(t *testing.T) {
		ad := &Ad{Active: true, CreatedAt: now.Add(-25 * 24 * time.Hour)}
		assert.True(t, ad.ExtensionEligible(now, lifetime, window))
	})
	t.Run("Expired", func(t *testing.T) {
		ad := &Ad{Active: true, CreatedAt: now.Add(-31 * 24 * time.Hour)}
		assert.True(t, ad.ExtensionEligible(now, lifetime, window))
	})
}

func TestAd_Publishable(t *testing.T) {
	assert.True(t, (&Ad{Status: ModerationApproved, Active: true}).Publishable())
	assert.False(t, (&Ad{Status: ModerationApproved, Active: false}).Publishable())
	assert.False(t, (&Ad{Status: ModerationPending, Active: true}).Publishable())
}

func TestAccount_IsBanned(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Account{}).IsBanned(now))
	assert.True(t, (&Account{Banned: true}).IsBanned(now))
	assert.True(t, (&Account{Banned: true, BanUntil: &future}).IsBanned(now))
	assert.False(t, (&Account{Banned: true, BanUntil: &past}).IsBanned(now))
}

func TestScheduledRepost_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &ScheduledRepost{NextRunAt: start, RemainingRuns: 3, Interval: time.Hour}

	assert.False(t, r.Advance())
	assert.Equal(t, 2, r.RemainingRuns)
	assert.Equal(t, start.Add(time.Hour), r.NextRunAt)

	assert.False(t, r.Advance())
	assert.Equal(t, start.Add(2*time.Hour), r.NextRunAt)

	assert.True(t, r.Advance())
	assert.Equal(t, 0, r.RemainingRuns)
}

func TestPlacementSelection_PutRemove(t *testing.T) {
	sel := &PlacementSelection{}
	sel.Put(Pick{ChannelID: 1, Quantity: 1})
	sel.Put(Pick{ChannelID: 2, Pin: true})
	sel.Put(Pick{ChannelID: 1, Quantity: 5})

	assert.Len(t, sel.Picks, 2)
	assert.Equal(t, 5, sel.Picks[0].Quantity)

	assert.True(t, sel.Remove(1))
	assert.False(t, sel.Remove(1))
	assert.Equal(t, int64(2), sel.Picks[0].ChannelID)
	assert.Equal(t, 1, sel.Picks[0].Runs())
}

func TestAdSubmission_Validate(t *testing.T) {
	s := &AdSubmission{Text: "Selling a bike"}
	assert.NoError(t, s.Validate())
	assert.Equal(t, 1, s.Quantity)

	empty := &AdSubmission{Text: "  "}
	assert.ErrorIs(t, empty.Validate(), ErrValidation)

	t.Run("Price Precision", func(t *testing.T) {
		priced := &AdSubmission{Text: "Bike", Price: decimal.RequireFromString("10.50")}
		assert.NoError(t, priced.Validate())

		fractional := &AdSubmission{Text: "Bike", Price: decimal.RequireFromString("10.005")}
		err := fractional.Validate()
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorContains(t, err, "more than two decimal places")

		negative := &AdSubmission{Text: "Bike", Price: decimal.RequireFromString("-1")}
		assert.ErrorIs(t, negative.Validate(), ErrValidation)
	})
}

func TestChannel_Validate(t *testing.T) {
	valid := func() *Channel {
		return &Channel{
			Title: "Moscow Deals", ChatID: -100123, Region: RegionMoscow, Active: true,
			PriceFor1: decimal.RequireFromString("100"), PriceFor5: decimal.RequireFromString("450.50"),
		}
	}
	assert.NoError(t, valid().Validate())

	t.Run("Fractional Kopecks", func(t *testing.T) {
		c := valid()
		c.PriceForPin = decimal.RequireFromString("70.001")
		err := c.Validate()
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorContains(t, err, "price_for_pin")
	})

	t.Run("Negative Price", func(t *testing.T) {
		c := valid()
		c.PriceFor10 = decimal.RequireFromString("-5")
		assert.ErrorIs(t, c.Validate(), ErrValidation)
	})

	t.Run("Active Without Base Price", func(t *testing.T) {
		c := valid()
		c.PriceFor1 = decimal.Zero
		assert.ErrorIs(t, c.Validate(), ErrValidation)
	})
}
