package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/domain"
)

func TestAccountService_Ensure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	a, err := f.accounts.Ensure(ctx, 10, "@alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)
	assert.True(t, a.Balance.IsZero())

	f.account(10, "100")
	a, err = f.accounts.Ensure(ctx, 10, "alice_new")
	require.NoError(t, err)
	assert.Equal(t, "alice_new", a.Username)
	assert.True(t, dec("100").Equal(a.Balance), "re-entry keeps the balance")

	_, err = f.accounts.Ensure(ctx, 0, "nobody")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAccountService_Bans(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.account(1, "0")
	f.account(2, "0")

	until := f.clock.Now().Add(time.Hour)
	require.NoError(t, f.accounts.Ban(ctx, staffID, 1, "spam", &until))
	assert.Contains(t, f.rec.noticesFor(1)[0], "Reason: spam")

	_, err := f.ads.Submit(ctx, 1, domain.AdSubmission{Text: "more spam"})
	assert.ErrorIs(t, err, domain.ErrAccountBanned)

	assert.ErrorIs(t, f.accounts.Ban(ctx, 2, 1, "", nil), domain.ErrForbidden)
	assert.ErrorIs(t, f.accounts.Ban(ctx, staffID, staffID, "", nil), domain.ErrValidation)
	past := f.clock.Now().Add(-time.Minute)
	assert.ErrorIs(t, f.accounts.Ban(ctx, staffID, 2, "", &past), domain.ErrValidation)

	n, err := f.accounts.LiftExpiredBans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	f.clock.Advance(2 * time.Hour)
	n, err = f.accounts.LiftExpiredBans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	a, err := f.accounts.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, a.Banned)
	_, err = f.ads.Submit(ctx, 1, domain.AdSubmission{Text: "back again"})
	assert.NoError(t, err)
}

func TestAccountService_Broadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.account(1, "0")
	f.account(2, "0")
	f.account(3, "0")
	require.NoError(t, f.accounts.Ban(ctx, staffID, 3, "fraud", nil))

	n, err := f.accounts.Broadcast(ctx, staffID, "New categories are live")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"New categories are live"}, f.rec.noticesFor(1))
	assert.Len(t, f.rec.noticesFor(3), 1) // only the ban notice

	_, err = f.accounts.Broadcast(ctx, 1, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.Broadcast(ctx, staffID, " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAccountService_UpdateVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.account(1, "0")

	v := domain.Verification{LegalName: " Ivan Petrov ", TaxID: "770123456789"}
	require.NoError(t, f.accounts.UpdateVerification(ctx, 1, 1, v))
	a, err := f.accounts.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", a.LegalName)

	assert.ErrorIs(t, f.accounts.UpdateVerification(ctx, 2, 1, v), domain.ErrForbidden)
	assert.NoError(t, f.accounts.UpdateVerification(ctx, staffID, 1, v))
	assert.ErrorIs(t, f.accounts.UpdateVerification(ctx, 1, 1, domain.Verification{TaxID: "77-01"}), domain.ErrValidation)
}
