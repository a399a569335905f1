package postgres

import (
	"context"
	"database/sql"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository"
)

type fundingRepository struct {
	q querier
}

func NewFundingRepository(q querier) repository.FundingRepository {
	return &fundingRepository{q: q}
}

const fundingColumns = `id, account_id, kind, amount, status, payment_system, reference, created_at, decided_at, decided_by`

func scanFunding(s scanner) (*domain.FundingRequest, error) {
	var f domain.FundingRequest
	var decidedAt sql.NullTime
	var decidedBy sql.NullInt64
	if err := s.Scan(&f.ID, &f.AccountID, &f.Kind, &f.Amount, &f.Status, &f.PaymentSystem, &f.Reference,
		&f.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return nil, err
	}
	f.DecidedAt = nullTime(decidedAt)
	f.DecidedBy = nullInt64(decidedBy)
	return &f, nil
}

func (r *fundingRepository) Create(ctx context.Context, req *domain.FundingRequest) error {
	query := `INSERT INTO funding_requests (account_id, kind, amount, status, payment_system, reference, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return r.q.QueryRowContext(ctx, query, req.AccountID, req.Kind, req.Amount, req.Status, req.PaymentSystem,
		req.Reference, req.CreatedAt).Scan(&req.ID)
}

func (r *fundingRepository) GetByID(ctx context.Context, id int64) (*domain.FundingRequest, error) {
	f, err := scanFunding(r.q.QueryRowContext(ctx, `SELECT `+fundingColumns+` FROM funding_requests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "funding request", id)
	}
	return f, nil
}

func (r *fundingRepository) Decide(ctx context.Context, id int64, to domain.FundingStatus, staffID int64, at time.Time) (bool, error) {
	query := `UPDATE funding_requests SET status = $1, decided_by = $2, decided_at = $3 WHERE id = $4 AND status = 'pending'`
	res, err := r.q.ExecContext(ctx, query, to, staffID, at, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (r *fundingRepository) ListByStatus(ctx context.Context, status domain.FundingStatus) ([]domain.FundingRequest, error) {
	return r.list(ctx, `SELECT `+fundingColumns+` FROM funding_requests WHERE status = $1 ORDER BY created_at`, status)
}

func (r *fundingRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.FundingRequest, error) {
	return r.list(ctx, `SELECT `+fundingColumns+` FROM funding_requests WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *fundingRepository) list(ctx context.Context, query string, arg any) ([]domain.FundingRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FundingRequest
	for rows.Next() {
		f, err := scanFunding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}
