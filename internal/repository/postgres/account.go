package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type accountRepository struct {
	q querier
}

func NewAccountRepository(q querier) repository.AccountRepository {
	return &accountRepository{q: q}
}

const accountColumns = `id, username, balance, banned, ban_reason, ban_until, legal_name, tax_id, company_name, created_at, last_active_at`

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	var banUntil sql.NullTime
	if err := s.Scan(&a.ID, &a.Username, &a.Balance, &a.Banned, &a.BanReason, &banUntil,
		&a.LegalName, &a.TaxID, &a.CompanyName, &a.CreatedAt, &a.LastActiveAt); err != nil {
		return nil, err
	}
	a.BanUntil = nullTime(banUntil)
	return &a, nil
}

func (r *accountRepository) Upsert(ctx context.Context, id int64, username string, seenAt time.Time) (*domain.Account, error) {
	query := `INSERT INTO accounts (id, username, created_at, last_active_at) VALUES ($1, $2, $3, $3)
	          ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, last_active_at = EXCLUDED.last_active_at
	          RETURNING ` + accountColumns
	logger.DatabaseCall("upsert", "accounts", "account_id", id)
	a, err := scanAccount(r.q.QueryRowContext(ctx, query, id, username, seenAt))
	if err != nil {
		logger.DatabaseResult("upsert", 0, err, "account_id", id)
		return nil, fmt.Errorf("upsert account %d: %w", id, err)
	}
	return a, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

func (r *accountRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
	          WHERE NOT banned OR (ban_until IS NOT NULL AND ban_until <= $1) ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) UpdateVerification(ctx context.Context, id int64, v domain.Verification) error {
	query := `UPDATE accounts SET legal_name = $1, tax_id = $2, company_name = $3 WHERE id = $4`
	res, err := r.q.ExecContext(ctx, query, v.LegalName, v.TaxID, v.CompanyName, id)
	if err != nil {
		return err
	}
	ok, err := changed(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *accountRepository) SetBan(ctx context.Context, id int64, banned bool, reason string, until *time.Time) error {
	query := `UPDATE accounts SET banned = $1, ban_reason = $2, ban_until = $3 WHERE id = $4`
	res, err := r.q.ExecContext(ctx, query, banned, reason, until, id)
	if err != nil {
		return err
	}
	ok, err := changed(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *accountRepository) LiftExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE accounts SET banned = FALSE, ban_reason = '', ban_until = NULL
	          WHERE banned AND ban_until IS NOT NULL AND ban_until <= $1`
	logger.DatabaseCall("update", "lift expired bans")
	res, err := r.q.ExecContext(ctx, query, now)
	if err != nil {
		logger.DatabaseResult("update", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("update", n, err)
	return n, err
}
