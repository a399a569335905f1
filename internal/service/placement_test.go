package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/domain"
)

func TestPlacementService_Quote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.channel("Moscow Deals", "100", "450", "0")
	b := f.channel("Region Market", "100", "0", "0")

	q, err := f.placement.Quote(ctx, []domain.Pick{
		{ChannelID: a.ID, Quantity: 5},
		{ChannelID: b.ID, Pin: true},
	}, domain.PlacementBatch)
	require.NoError(t, err)
	assert.True(t, dec("610").Equal(q.PlacementTotal))
	assert.True(t, dec("350").Equal(q.MarkingFee))
	assert.True(t, dec("960").Equal(q.Total))

	_, err = f.placement.Quote(ctx, []domain.Pick{{ChannelID: 999, Quantity: 1}}, domain.PlacementSingle)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlacementService_Purchase(t *testing.T) {
	ctx := context.Background()
	sub := domain.AdSubmission{Text: "Selling a laptop"}

	setup := func(balance string) (*fixture, []domain.Pick) {
		f := newFixture()
		f.account(1, balance)
		a := f.channel("Moscow Deals", "100", "450", "0")
		b := f.channel("Region Market", "100", "0", "0")
		return f, []domain.Pick{{ChannelID: a.ID, Quantity: 5}, {ChannelID: b.ID, Pin: true}}
	}

	t.Run("Success", func(t *testing.T) {
		f, picks := setup("1000")

		p, err := f.placement.Purchase(ctx, 1, sub, picks, domain.PlacementBatch, dec("960"))
		require.NoError(t, err)
		assert.True(t, dec("40").Equal(f.balance(1)))
		require.Len(t, p.Ads, 2)
		require.Len(t, p.Reposts, 2)
		for i, ad := range p.Ads {
			assert.Equal(t, domain.ModerationPending, ad.Status)
			assert.Equal(t, domain.PlacementExchange, ad.Kind)
			require.NotNil(t, ad.ChannelID)
			assert.Equal(t, picks[i].ChannelID, *ad.ChannelID)
		}
		assert.Equal(t, "Moscow Deals", p.Ads[0].Title)
		assert.Equal(t, 5, p.Reposts[0].RemainingRuns)
		assert.False(t, p.Reposts[0].Pinned)
		assert.Equal(t, 1, p.Reposts[1].RemainingRuns)
		assert.True(t, p.Reposts[1].Pinned)
		assert.Contains(t, f.rec.alerts, "New paid placement awaiting moderation")
	})

	t.Run("Quote Changed", func(t *testing.T) {
		f, picks := setup("1000")
		ch, err := f.channels.Get(ctx, picks[0].ChannelID)
		require.NoError(t, err)
		ch.PriceFor5 = dec("500")
		require.NoError(t, f.channels.Update(ctx, staffID, ch))

		_, err = f.placement.Purchase(ctx, 1, sub, picks, domain.PlacementBatch, dec("960"))
		assert.ErrorIs(t, err, domain.ErrQuoteChanged)
		assert.True(t, dec("1000").Equal(f.balance(1)))
	})

	t.Run("Insufficient Funds Creates Nothing", func(t *testing.T) {
		f, picks := setup("900")

		_, err := f.placement.Purchase(ctx, 1, sub, picks, domain.PlacementBatch, dec("960"))
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.True(t, dec("900").Equal(f.balance(1)))
		ads, err := f.ads.ListByOwner(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, ads)
	})

	t.Run("Inactive Channel", func(t *testing.T) {
		f, picks := setup("1000")
		ch, err := f.channels.Get(ctx, picks[1].ChannelID)
		require.NoError(t, err)
		ch.Active = false
		require.NoError(t, f.channels.Update(ctx, staffID, ch))

		_, err = f.placement.Purchase(ctx, 1, sub, picks, domain.PlacementBatch, dec("960"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, dec("1000").Equal(f.balance(1)))
	})
}

func TestPlacementService_Cart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.account(1, "1000")
	a := f.channel("Moscow Deals", "100", "450", "0")
	b := f.channel("Region Market", "100", "0", "0")

	sel, q, err := f.placement.Cart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sel.Picks)
	assert.Nil(t, q)

	_, q, err = f.placement.AddToCart(ctx, 1, domain.PlacementBatch, domain.Pick{ChannelID: a.ID, Quantity: 5})
	require.NoError(t, err)
	assert.True(t, dec("800").Equal(q.Total))

	sel, q, err = f.placement.AddToCart(ctx, 1, domain.PlacementBatch, domain.Pick{ChannelID: b.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, sel.Picks, 2)
	assert.True(t, dec("1000").Equal(q.Total))

	_, _, err = f.placement.AddToCart(ctx, 1, domain.PlacementBatch, domain.Pick{ChannelID: 999, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sel, q, err = f.placement.RemoveFromCart(ctx, 1, b.ID)
	require.NoError(t, err)
	assert.Len(t, sel.Picks, 1)
	assert.True(t, dec("800").Equal(q.Total))

	_, _, err = f.placement.RemoveFromCart(ctx, 1, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := f.placement.Checkout(ctx, 1, domain.AdSubmission{Text: "Laptop"}, dec("800"))
	require.NoError(t, err)
	assert.Len(t, p.Ads, 1)
	assert.True(t, dec("200").Equal(f.balance(1)))

	_, err = f.placement.Checkout(ctx, 1, domain.AdSubmission{Text: "Laptop"}, dec("800"))
	assert.ErrorIs(t, err, domain.ErrValidation, "cart is cleared after checkout")
}

func TestPlacementService_SingleModeKeepsOnePick(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.channel("Moscow Deals", "100", "450", "0")
	b := f.channel("Region Market", "120", "0", "0")

	_, _, err := f.placement.AddToCart(ctx, 1, domain.PlacementSingle, domain.Pick{ChannelID: a.ID, Quantity: 1})
	require.NoError(t, err)
	sel, q, err := f.placement.AddToCart(ctx, 1, domain.PlacementSingle, domain.Pick{ChannelID: b.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, sel.Picks, 1)
	assert.Equal(t, b.ID, sel.Picks[0].ChannelID)
	assert.True(t, dec("170").Equal(q.Total))

	require.NoError(t, f.placement.AbandonCart(ctx, 1))
	sel, _, err = f.placement.Cart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sel.Picks)
}
