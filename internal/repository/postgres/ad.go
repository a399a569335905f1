package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type adRepository struct {
	q querier
}

func NewAdRepository(q querier) repository.AdRepository {
	return &adRepository{q: q}
}

const adColumns = `id, owner_id, title, text, price, quantity, category, subcategory, city, contact, photos,
	moderation_status, active, placement_kind, channel_id, created_at, updated_at`

func scanAd(s scanner) (*domain.Ad, error) {
	var ad domain.Ad
	var channelID sql.NullInt64
	var photos pq.StringArray
	if err := s.Scan(&ad.ID, &ad.OwnerID, &ad.Title, &ad.Text, &ad.Price, &ad.Quantity, &ad.Category,
		&ad.Subcategory, &ad.City, &ad.Contact, &photos, &ad.Status, &ad.Active, &ad.Kind,
		&channelID, &ad.CreatedAt, &ad.UpdatedAt); err != nil {
		return nil, err
	}
	ad.Photos = []string(photos)
	ad.ChannelID = nullInt64(channelID)
	return &ad, nil
}

func scanAds(rows *sql.Rows) ([]domain.Ad, error) {
	defer rows.Close()
	var ads []domain.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *ad)
	}
	return ads, rows.Err()
}

func (r *adRepository) Create(ctx context.Context, ad *domain.Ad) error {
	query := `INSERT INTO ads (owner_id, title, text, price, quantity, category, subcategory, city, contact, photos,
	          moderation_status, active, placement_kind, channel_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	if ad.Photos == nil {
		ad.Photos = []string{}
	}
	logger.DatabaseCall("insert", "ads", "owner_id", ad.OwnerID)
	err := r.q.QueryRowContext(ctx, query, ad.OwnerID, ad.Title, ad.Text, ad.Price, ad.Quantity, ad.Category,
		ad.Subcategory, ad.City, ad.Contact, pq.Array(ad.Photos), ad.Status, ad.Active, ad.Kind,
		ad.ChannelID, ad.CreatedAt, ad.UpdatedAt).Scan(&ad.ID)
	if err != nil {
		logger.DatabaseResult("insert", 0, err, "owner_id", ad.OwnerID)
		return fmt.Errorf("insert ad: %w", err)
	}
	return nil
}

func (r *adRepository) GetByID(ctx context.Context, id int64) (*domain.Ad, error) {
	ad, err := scanAd(r.q.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "ad", id)
	}
	return ad, nil
}

func (r *adRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ad, error) {
	ad, err := scanAd(r.q.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "ad", id)
	}
	return ad, nil
}

func (r *adRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.ModerationStatus, at time.Time) (bool, error) {
	query := `UPDATE ads SET moderation_status = $1, updated_at = $2 WHERE id = $3 AND moderation_status = $4`
	res, err := r.q.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (r *adRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE ads SET active = $1, updated_at = $2 WHERE id = $3`, active, at, id)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *adRepository) UpdateText(ctx context.Context, id int64, text string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE ads SET text = $1, updated_at = $2 WHERE id = $3`, text, at, id)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *adRepository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE ads SET price = $1, updated_at = $2 WHERE id = $3`, price, at, id)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *adRepository) Renew(ctx context.Context, id int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE ads SET created_at = $1, updated_at = $1, active = TRUE WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return r.requireRow(res, id)
}

func (r *adRepository) requireRow(res sql.Result, id int64) error {
	ok, err := changed(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ad %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *adRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ad, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+adColumns+` FROM ads WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanAds(rows)
}

func (r *adRepository) Search(ctx context.Context, filter domain.AdFilter) ([]domain.Ad, error) {
	conds := []string{"moderation_status = 'approved'", "active"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.City != "" {
		add("city = $%d", filter.City)
	}
	if filter.Query != "" {
		add("(text ILIKE $%[1]d OR title ILIKE $%[1]d)", "%"+filter.Query+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := `SELECT ` + adColumns + ` FROM ads WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAds(rows)
}

func (r *adRepository) ListExpired(ctx context.Context, createdBefore time.Time) ([]domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads
	          WHERE moderation_status = 'approved' AND active AND created_at < $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, createdBefore)
	if err != nil {
		return nil, err
	}
	return scanAds(rows)
}
