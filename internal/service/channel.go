package service

import (
	"context"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository"
)

type channelService struct {
	uow    repository.UnitOfWork
	policy StaffPolicy
	collab Collaborators
}

func NewChannelService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators) ChannelService {
	return &channelService{uow: uow, policy: policy, collab: collab.withDefaults()}
}

func (s *channelService) Create(ctx context.Context, staffID int64, ch *domain.Channel) error {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return err
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	ch.CreatedAt = s.collab.now()
	return s.uow.Repos().Channels.Create(ctx, ch)
}

func (s *channelService) Update(ctx context.Context, staffID int64, ch *domain.Channel) error {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return err
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Channels.GetByID(ctx, ch.ID)
		if err != nil {
			return err
		}
		ch.CreatedAt = existing.CreatedAt
		return repos.Channels.Update(ctx, ch)
	})
}

func (s *channelService) Get(ctx context.Context, id int64) (*domain.Channel, error) {
	return s.uow.Repos().Channels.GetByID(ctx, id)
}

func (s *channelService) List(ctx context.Context, region domain.Region, activeOnly bool) ([]domain.Channel, error) {
	if region != "" && !region.Valid() {
		return nil, validationf("unknown region %q", region)
	}
	return s.uow.Repos().Channels.List(ctx, region, activeOnly)
}
