package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository"
)

type channelRepository struct {
	q querier
}

func NewChannelRepository(q querier) repository.ChannelRepository {
	return &channelRepository{q: q}
}

const channelColumns = `id, chat_id, title, region, price_for_1, price_for_5, price_for_10, price_for_pin, participants, active, created_at`

func scanChannel(s scanner) (*domain.Channel, error) {
	var c domain.Channel
	if err := s.Scan(&c.ID, &c.ChatID, &c.Title, &c.Region, &c.PriceFor1, &c.PriceFor5, &c.PriceFor10,
		&c.PriceForPin, &c.Participants, &c.Active, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *channelRepository) Create(ctx context.Context, ch *domain.Channel) error {
	query := `INSERT INTO channels (chat_id, title, region, price_for_1, price_for_5, price_for_10, price_for_pin, participants, active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, ch.ChatID, ch.Title, ch.Region, ch.PriceFor1, ch.PriceFor5, ch.PriceFor10,
		ch.PriceForPin, ch.Participants, ch.Active, ch.CreatedAt).Scan(&ch.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%w: channel with chat id %d already exists", domain.ErrValidation, ch.ChatID)
		}
		return err
	}
	return nil
}

func (r *channelRepository) Update(ctx context.Context, ch *domain.Channel) error {
	query := `UPDATE channels SET chat_id = $1, title = $2, region = $3, price_for_1 = $4, price_for_5 = $5,
	          price_for_10 = $6, price_for_pin = $7, participants = $8, active = $9 WHERE id = $10`
	res, err := r.q.ExecContext(ctx, query, ch.ChatID, ch.Title, ch.Region, ch.PriceFor1, ch.PriceFor5,
		ch.PriceFor10, ch.PriceForPin, ch.Participants, ch.Active, ch.ID)
	if err != nil {
		return err
	}
	ok, err := changed(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("channel %d: %w", ch.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	c, err := scanChannel(r.q.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "channel", id)
	}
	return c, nil
}

func (r *channelRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Channel, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*domain.Channel, len(ids))
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (r *channelRepository) List(ctx context.Context, region domain.Region, activeOnly bool) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels
	          WHERE ($1 = '' OR region = $1) AND (NOT $2 OR active) ORDER BY region, title`
	rows, err := r.q.QueryContext(ctx, query, string(region), activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}
