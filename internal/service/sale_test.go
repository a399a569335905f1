package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/domain"
)

func TestSaleService_Reserve(t *testing.T) {
	ctx := context.Background()
	const seller, buyer int64 = 1, 2

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.account(seller, "0")
		f.account(buyer, "1000")
		ad := f.approvedAd(seller, "300")

		sale, err := f.sales.Reserve(ctx, buyer, ad.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusPending, sale.Status)
		assert.True(t, dec("300").Equal(sale.Amount))
		assert.True(t, dec("700").Equal(f.balance(buyer)))
		assert.True(t, dec("0").Equal(f.balance(seller)))
		assert.Len(t, f.rec.noticesFor(seller), 2) // approval + reservation
		assert.Contains(t, f.rec.events, "sale.reserved")
	})

	t.Run("Insufficient Funds", func(t *testing.T) {
		f := newFixture()
		f.account(seller, "0")
		f.account(buyer, "100")
		ad := f.approvedAd(seller, "300")

		sale, err := f.sales.Reserve(ctx, buyer, ad.ID)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Nil(t, sale)
		assert.True(t, dec("100").Equal(f.balance(buyer)))
		sales, err := f.sales.ListByAccount(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, sales)
	})

	t.Run("Own Ad", func(t *testing.T) {
		f := newFixture()
		f.account(seller, "1000")
		ad := f.approvedAd(seller, "300")

		_, err := f.sales.Reserve(ctx, seller, ad.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.True(t, dec("1000").Equal(f.balance(seller)))
	})

	t.Run("Ad Not Approved", func(t *testing.T) {
		f := newFixture()
		f.account(seller, "0")
		f.account(buyer, "1000")
		ad, err := f.ads.Submit(ctx, seller, domain.AdSubmission{Text: "Sofa", Price: dec("300")})
		require.NoError(t, err)

		_, err = f.sales.Reserve(ctx, buyer, ad.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.True(t, dec("1000").Equal(f.balance(buyer)))
	})

	t.Run("Banned Buyer", func(t *testing.T) {
		f := newFixture()
		f.account(seller, "0")
		f.account(buyer, "1000")
		ad := f.approvedAd(seller, "300")
		require.NoError(t, f.accounts.Ban(ctx, staffID, buyer, "spam", nil))

		_, err := f.sales.Reserve(ctx, buyer, ad.ID)
		assert.ErrorIs(t, err, domain.ErrAccountBanned)
	})
}

func TestSaleService_Settle(t *testing.T) {
	ctx := context.Background()
	const seller, buyer int64 = 1, 2

	setup := func(t *testing.T) (*fixture, *domain.Sale) {
		f := newFixture()
		f.account(seller, "0")
		f.account(buyer, "1000")
		ad := f.approvedAd(seller, "300")
		sale, err := f.sales.Reserve(ctx, buyer, ad.ID)
		require.NoError(t, err)
		return f, sale
	}

	t.Run("Complete Pays Seller Once", func(t *testing.T) {
		f, sale := setup(t)

		done, err := f.sales.Complete(ctx, buyer, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusCompleted, done.Status)
		assert.NotNil(t, done.SettledAt)
		assert.True(t, dec("300").Equal(f.balance(seller)))

		_, err = f.sales.Complete(ctx, buyer, sale.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		assert.True(t, dec("300").Equal(f.balance(seller)))
		assert.True(t, dec("700").Equal(f.balance(buyer)))
	})

	t.Run("Cancel Refunds Buyer", func(t *testing.T) {
		f, sale := setup(t)

		done, err := f.sales.Cancel(ctx, buyer, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusCanceled, done.Status)
		assert.True(t, dec("1000").Equal(f.balance(buyer)))
		assert.True(t, dec("0").Equal(f.balance(seller)))

		_, err = f.sales.Complete(ctx, buyer, sale.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		assert.True(t, dec("0").Equal(f.balance(seller)))
	})

	t.Run("Price Change After Reserve Keeps Snapshot", func(t *testing.T) {
		f, sale := setup(t)

		edited, err := f.ads.EditPrice(ctx, staffID, sale.AdID, dec("900"))
		require.NoError(t, err)
		assert.True(t, dec("900").Equal(edited.Price))
		stored, err := f.store.Repos().Ads.GetByID(ctx, sale.AdID)
		require.NoError(t, err)
		require.True(t, dec("900").Equal(stored.Price))

		done, err := f.sales.Complete(ctx, buyer, sale.ID)
		require.NoError(t, err)
		assert.True(t, dec("300").Equal(done.Amount))
		assert.True(t, dec("300").Equal(f.balance(seller)), "seller gets the reserved amount, not the new price")
		assert.True(t, dec("700").Equal(f.balance(buyer)))
	})

	t.Run("Price Change Before Cancel Refunds Snapshot", func(t *testing.T) {
		f, sale := setup(t)

		_, err := f.ads.EditPrice(ctx, staffID, sale.AdID, dec("50"))
		require.NoError(t, err)

		_, err = f.sales.Cancel(ctx, buyer, sale.ID)
		require.NoError(t, err)
		assert.True(t, dec("1000").Equal(f.balance(buyer)))
		assert.True(t, dec("0").Equal(f.balance(seller)))
	})

	t.Run("Only Buyer Settles", func(t *testing.T) {
		f, sale := setup(t)

		_, err := f.sales.Complete(ctx, seller, sale.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		got, err := f.sales.Get(ctx, seller, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusPending, got.Status)
	})

	t.Run("Unknown Sale", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.sales.Cancel(ctx, buyer, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Concurrent Complete And Cancel", func(t *testing.T) {
		f, sale := setup(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.sales.Complete(ctx, buyer, sale.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.sales.Cancel(ctx, buyer, sale.ID)
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
			}
		}
		assert.Equal(t, 1, succeeded)
		total := f.balance(buyer).Add(f.balance(seller))
		assert.True(t, dec("1000").Equal(total), "money must be conserved, got %s", total)
	})

	t.Run("Stranger Cannot View", func(t *testing.T) {
		f, sale := setup(t)
		_, err := f.sales.Get(ctx, 77, sale.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = f.sales.Get(ctx, staffID, sale.ID)
		assert.NoError(t, err)
	})
}
