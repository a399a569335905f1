package postgres

import (
	"context"
	"database/sql"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type saleRepository struct {
	q querier
}

func NewSaleRepository(q querier) repository.SaleRepository {
	return &saleRepository{q: q}
}

const saleColumns = `id, ad_id, buyer_id, seller_id, amount, status, created_at, settled_at`

func scanSale(s scanner) (*domain.Sale, error) {
	var sale domain.Sale
	var settledAt sql.NullTime
	if err := s.Scan(&sale.ID, &sale.AdID, &sale.BuyerID, &sale.SellerID, &sale.Amount, &sale.Status,
		&sale.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	sale.SettledAt = nullTime(settledAt)
	return &sale, nil
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	query := `INSERT INTO sales (ad_id, buyer_id, seller_id, amount, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("insert", "sales", "ad_id", sale.AdID, "buyer_id", sale.BuyerID)
	return r.q.QueryRowContext(ctx, query, sale.AdID, sale.BuyerID, sale.SellerID, sale.Amount,
		sale.Status, sale.CreatedAt).Scan(&sale.ID)
}

func (r *saleRepository) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "sale", id)
	}
	return sale, nil
}

func (r *saleRepository) Settle(ctx context.Context, id int64, to domain.SaleStatus, at time.Time) (bool, error) {
	query := `UPDATE sales SET status = $1, settled_at = $2 WHERE id = $3 AND status = 'pending'`
	logger.DatabaseCall("update", "sales", "sale_id", id, "status", to)
	res, err := r.q.ExecContext(ctx, query, to, at, id)
	if err != nil {
		logger.DatabaseResult("update", 0, err, "sale_id", id)
		return false, err
	}
	return changed(res)
}

func (r *saleRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}
