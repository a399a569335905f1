package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type ledgerService struct {
	uow    repository.UnitOfWork
	policy StaffPolicy
	collab Collaborators
}

func NewLedgerService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators) LedgerService {
	return &ledgerService{uow: uow, policy: policy, collab: collab.withDefaults()}
}

func (s *ledgerService) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return s.uow.Repos().Ledger.Balance(ctx, accountID)
}

func (s *ledgerService) Adjust(ctx context.Context, staffID, accountID int64, mode domain.AdjustmentMode, amount decimal.Decimal, note string) (*domain.BalanceAdjustment, error) {
	logger.EnterMethod("ledgerService.Adjust", "staffID", staffID, "accountID", accountID, "mode", mode, "amount", amount)
	if err := s.policy.RequireStaff(staffID); err != nil {
		logger.ExitMethodWithError("ledgerService.Adjust", err, "staffID", staffID)
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown adjustment mode %q", domain.ErrValidation, mode)
	}
	if err := validateMoney(amount, mode == domain.AdjustmentSet); err != nil {
		return nil, err
	}

	adj := &domain.BalanceAdjustment{
		AccountID: accountID,
		StaffID:   staffID,
		Mode:      mode,
		Amount:    amount,
		Note:      note,
		CreatedAt: s.collab.now(),
	}
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		before, err := repos.Ledger.LockBalance(ctx, accountID)
		if err != nil {
			return err
		}
		after := before
		switch mode {
		case domain.AdjustmentCredit:
			after, err = credit(ctx, repos.Ledger, accountID, amount)
		case domain.AdjustmentDebit:
			after, err = debit(ctx, repos.Ledger, accountID, amount)
		case domain.AdjustmentSet:
			delta := amount.Sub(before)
			if delta.IsPositive() {
				after, err = credit(ctx, repos.Ledger, accountID, delta)
			} else if delta.IsNegative() {
				after, err = debit(ctx, repos.Ledger, accountID, delta.Neg())
			}
		}
		if err != nil {
			return err
		}
		adj.BalanceBefore, adj.BalanceAfter = before, after
		return repos.Ledger.RecordAdjustment(ctx, adj)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.Adjust", err, "accountID", accountID)
		return nil, err
	}

	s.collab.notify(ctx, accountID, fmt.Sprintf("Your balance was adjusted by staff. New balance: %s", adj.BalanceAfter.StringFixed(2)))
	s.collab.emit(ctx, EventBalanceAdjusted, adj)
	logger.ExitMethod("ledgerService.Adjust", "accountID", accountID, "balance", adj.BalanceAfter)
	return adj, nil
}

// validateMoney rejects amounts that are negative, zero (unless allowZero), or
// finer than a kopeck.
func validateMoney(amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) {
		return fmt.Errorf("%w: amount must be positive, got %s", domain.ErrValidation, amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount %s has more than two decimal places", domain.ErrValidation, amount)
	}
	return nil
}

func credit(ctx context.Context, ledger repository.LedgerRepository, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateMoney(amount, false); err != nil {
		return decimal.Zero, err
	}
	return ledger.Credit(ctx, accountID, amount)
}

func debit(ctx context.Context, ledger repository.LedgerRepository, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateMoney(amount, false); err != nil {
		return decimal.Zero, err
	}
	return ledger.Debit(ctx, accountID, amount)
}
