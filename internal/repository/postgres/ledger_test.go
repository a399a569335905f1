package postgres_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository/postgres"
)

func TestLedgerRepository_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewLedgerRepository(db)
	ctx := context.Background()
	amount := decimal.NewFromInt(500)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts SET balance = balance -").
			WithArgs(amount, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("0.00"))

		bal, err := repo.Debit(ctx, 7, amount)
		assert.NoError(t, err)
		assert.True(t, bal.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts SET balance = balance -").
			WithArgs(amount, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.Debit(ctx, 7, amount)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts SET balance = balance -").
			WithArgs(amount, int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.Debit(ctx, 8, amount)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewLedgerRepository(db)

	mock.ExpectQuery("UPDATE accounts SET balance = balance \\+").
		WithArgs(decimal.NewFromInt(250), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("750.00"))

	bal, err := repo.Credit(context.Background(), 3, decimal.NewFromInt(250))
	assert.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(bal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewLedgerRepository(db)

	mock.ExpectQuery("SELECT balance FROM accounts").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))

	_, err = repo.Balance(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
