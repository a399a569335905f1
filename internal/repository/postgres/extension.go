package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository"
)

type extensionRepository struct {
	q querier
}

func NewExtensionRepository(q querier) repository.ExtensionRepository {
	return &extensionRepository{q: q}
}

const extensionColumns = `id, ad_id, owner_id, status, created_at, decided_at, decided_by`

func scanExtension(s scanner) (*domain.ExtensionRequest, error) {
	var e domain.ExtensionRequest
	var decidedAt sql.NullTime
	var decidedBy sql.NullInt64
	if err := s.Scan(&e.ID, &e.AdID, &e.OwnerID, &e.Status, &e.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return nil, err
	}
	e.DecidedAt = nullTime(decidedAt)
	e.DecidedBy = nullInt64(decidedBy)
	return &e, nil
}

func (r *extensionRepository) Create(ctx context.Context, req *domain.ExtensionRequest) error {
	query := `INSERT INTO ad_extensions (ad_id, owner_id, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.q.QueryRowContext(ctx, query, req.AdID, req.OwnerID, req.Status, req.CreatedAt).Scan(&req.ID)
}

func (r *extensionRepository) GetByID(ctx context.Context, id int64) (*domain.ExtensionRequest, error) {
	e, err := scanExtension(r.q.QueryRowContext(ctx, `SELECT `+extensionColumns+` FROM ad_extensions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "extension request", id)
	}
	return e, nil
}

// FindPendingForAd returns nil without error when the ad has no open request.
func (r *extensionRepository) FindPendingForAd(ctx context.Context, adID int64) (*domain.ExtensionRequest, error) {
	query := `SELECT ` + extensionColumns + ` FROM ad_extensions WHERE ad_id = $1 AND status = 'pending'`
	e, err := scanExtension(r.q.QueryRowContext(ctx, query, adID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *extensionRepository) Decide(ctx context.Context, id int64, to domain.ExtensionStatus, staffID int64, at time.Time) (bool, error) {
	query := `UPDATE ad_extensions SET status = $1, decided_by = $2, decided_at = $3 WHERE id = $4 AND status = 'pending'`
	res, err := r.q.ExecContext(ctx, query, to, staffID, at, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}
