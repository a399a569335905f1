package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type fundingService struct {
	uow      repository.UnitOfWork
	policy   StaffPolicy
	collab   Collaborators
	settings Settings
}

func NewFundingService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators, settings Settings) FundingService {
	return &fundingService{uow: uow, policy: policy, collab: collab.withDefaults(), settings: settings}
}

func (s *fundingService) RequestTopUp(ctx context.Context, accountID int64, amount decimal.Decimal, paymentSystem, receipt string) (*domain.FundingRequest, error) {
	if err := validateMoney(amount, false); err != nil {
		return nil, err
	}
	paymentSystem = strings.TrimSpace(paymentSystem)
	if paymentSystem == "" {
		return nil, validationf("payment system is required")
	}
	req := &domain.FundingRequest{
		AccountID:     accountID,
		Kind:          domain.FundingTopUp,
		Amount:        amount,
		PaymentSystem: paymentSystem,
		Reference:     strings.TrimSpace(receipt),
	}
	return s.create(ctx, req)
}

// RequestWithdrawal files a payout request. The balance is checked now and
// again when staff approve; nothing is held in between.
func (s *fundingService) RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, destination string) (*domain.FundingRequest, error) {
	if err := validateMoney(amount, false); err != nil {
		return nil, err
	}
	if min := s.settings.MinWithdrawal; min.IsPositive() && amount.LessThan(min) {
		return nil, validationf("minimum withdrawal is %s", min.StringFixed(2))
	}
	card := strings.ReplaceAll(strings.TrimSpace(destination), " ", "")
	if len(card) != 16 || !isDigits(card) {
		return nil, validationf("card number must have 16 digits")
	}
	balance, err := s.uow.Repos().Ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, fmt.Errorf("withdraw %s with balance %s: %w", amount, balance, domain.ErrInsufficientFunds)
	}
	return s.create(ctx, &domain.FundingRequest{
		AccountID: accountID,
		Kind:      domain.FundingWithdrawal,
		Amount:    amount,
		Reference: card,
	})
}

func (s *fundingService) create(ctx context.Context, req *domain.FundingRequest) (*domain.FundingRequest, error) {
	now := s.collab.now()
	req.Status, req.CreatedAt = domain.FundingPending, now
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireActive(ctx, repos.Accounts, req.AccountID, now); err != nil {
			return err
		}
		return repos.Funding.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.collab.alert(ctx, fmt.Sprintf("New %s request #%d", req.Kind, req.ID),
		fmt.Sprintf("Account %d requests %s %s (%s).", req.AccountID, req.Kind, req.Amount.StringFixed(2), req.PaymentSystem))
	s.collab.emit(ctx, EventFundingRequested, req)
	return req, nil
}

func (s *fundingService) Approve(ctx context.Context, staffID, requestID int64) (*domain.FundingRequest, error) {
	logger.EnterMethod("fundingService.Approve", "staffID", staffID, "requestID", requestID)
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var req *domain.FundingRequest
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if req, err = repos.Funding.GetByID(ctx, requestID); err != nil {
			return err
		}
		ok, err := repos.Funding.Decide(ctx, requestID, domain.FundingApproved, staffID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: funding request %d", domain.ErrAlreadyProcessed, requestID)
		}
		switch req.Kind {
		case domain.FundingTopUp:
			_, err = credit(ctx, repos.Ledger, req.AccountID, req.Amount)
		case domain.FundingWithdrawal:
			_, err = debit(ctx, repos.Ledger, req.AccountID, req.Amount)
		default:
			err = fmt.Errorf("%w: unknown funding kind %q", domain.ErrValidation, req.Kind)
		}
		if err != nil {
			return err
		}
		req.Status, req.DecidedAt, req.DecidedBy = domain.FundingApproved, &now, &staffID
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("fundingService.Approve", err, "requestID", requestID)
		return nil, err
	}

	if req.Kind == domain.FundingTopUp {
		s.collab.notify(ctx, req.AccountID, fmt.Sprintf("Your top-up of %s was approved.", req.Amount.StringFixed(2)))
	} else {
		s.collab.notify(ctx, req.AccountID, fmt.Sprintf("Your withdrawal of %s was approved and is on its way.", req.Amount.StringFixed(2)))
	}
	s.collab.emit(ctx, EventFundingApproved, req)
	logger.ExitMethod("fundingService.Approve", "requestID", requestID, "kind", req.Kind)
	return req, nil
}

func (s *fundingService) Reject(ctx context.Context, staffID, requestID int64) (*domain.FundingRequest, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	now := s.collab.now()
	var req *domain.FundingRequest
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if req, err = repos.Funding.GetByID(ctx, requestID); err != nil {
			return err
		}
		ok, err := repos.Funding.Decide(ctx, requestID, domain.FundingRejected, staffID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: funding request %d", domain.ErrAlreadyProcessed, requestID)
		}
		req.Status, req.DecidedAt, req.DecidedBy = domain.FundingRejected, &now, &staffID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, req.AccountID, fmt.Sprintf("Your %s request of %s was declined.", req.Kind, req.Amount.StringFixed(2)))
	s.collab.emit(ctx, EventFundingRejected, req)
	return req, nil
}

func (s *fundingService) ListPending(ctx context.Context, staffID int64) ([]domain.FundingRequest, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return nil, err
	}
	return s.uow.Repos().Funding.ListByStatus(ctx, domain.FundingPending)
}

func (s *fundingService) ListByAccount(ctx context.Context, accountID int64) ([]domain.FundingRequest, error) {
	return s.uow.Repos().Funding.ListByAccount(ctx, accountID)
}
