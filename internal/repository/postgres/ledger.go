package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type ledgerRepository struct {
	q querier
}

func NewLedgerRepository(q querier) repository.LedgerRepository {
	return &ledgerRepository{q: q}
}

func (r *ledgerRepository) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err, "account", accountID)
	}
	return balance, nil
}

func (r *ledgerRepository) LockBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err, "account", accountID)
	}
	return balance, nil
}

func (r *ledgerRepository) Credit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`
	logger.DatabaseCall("credit", "accounts", "account_id", accountID, "amount", amount.String())
	var balance decimal.Decimal
	if err := r.q.QueryRowContext(ctx, query, amount, accountID).Scan(&balance); err != nil {
		logger.DatabaseResult("credit", 0, err, "account_id", accountID)
		return decimal.Zero, notFound(err, "account", accountID)
	}
	logger.DatabaseResult("credit", 1, nil, "account_id", accountID)
	return balance, nil
}

// Debit subtracts amount only when the balance covers it. A missed row means
// either no such account or not enough money; the second query tells which.
func (r *ledgerRepository) Debit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE accounts SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`
	logger.DatabaseCall("debit", "accounts", "account_id", accountID, "amount", amount.String())
	var balance decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, amount, accountID).Scan(&balance)
	if err == nil {
		logger.DatabaseResult("debit", 1, nil, "account_id", accountID)
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("debit", 0, err, "account_id", accountID)
		return decimal.Zero, err
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	return decimal.Zero, fmt.Errorf("debit %s from account %d: %w", amount, accountID, domain.ErrInsufficientFunds)
}

func (r *ledgerRepository) RecordAdjustment(ctx context.Context, adj *domain.BalanceAdjustment) error {
	query := `INSERT INTO balance_adjustments (account_id, staff_id, mode, amount, balance_before, balance_after, note, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.q.QueryRowContext(ctx, query, adj.AccountID, adj.StaffID, adj.Mode, adj.Amount,
		adj.BalanceBefore, adj.BalanceAfter, adj.Note, adj.CreatedAt).Scan(&adj.ID)
}
