package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

type accountService struct {
	uow    repository.UnitOfWork
	policy StaffPolicy
	collab Collaborators
}

func NewAccountService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators) AccountService {
	return &accountService{uow: uow, policy: policy, collab: collab.withDefaults()}
}

// Ensure creates the account on first interaction and refreshes it afterwards.
func (s *accountService) Ensure(ctx context.Context, id int64, username string) (*domain.Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: account id must be positive", domain.ErrValidation)
	}
	return s.uow.Repos().Accounts.Upsert(ctx, id, strings.TrimPrefix(username, "@"), s.collab.now())
}

func (s *accountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	return s.uow.Repos().Accounts.GetByID(ctx, id)
}

func (s *accountService) UpdateVerification(ctx context.Context, actorID, accountID int64, v domain.Verification) error {
	if actorID != accountID && !s.policy.IsStaff(actorID) {
		return fmt.Errorf("%w: account %d cannot edit account %d", domain.ErrForbidden, actorID, accountID)
	}
	v.LegalName = strings.TrimSpace(v.LegalName)
	v.TaxID = strings.TrimSpace(v.TaxID)
	v.CompanyName = strings.TrimSpace(v.CompanyName)
	if v.TaxID != "" && !isDigits(v.TaxID) {
		return fmt.Errorf("%w: tax id must contain digits only", domain.ErrValidation)
	}
	return s.uow.Repos().Accounts.UpdateVerification(ctx, accountID, v)
}

func (s *accountService) Ban(ctx context.Context, staffID, accountID int64, reason string, until *time.Time) error {
	logger.EnterMethod("accountService.Ban", "staffID", staffID, "accountID", accountID)
	if err := s.policy.RequireStaff(staffID); err != nil {
		return err
	}
	if s.policy.IsStaff(accountID) {
		return fmt.Errorf("%w: staff accounts cannot be banned", domain.ErrValidation)
	}
	now := s.collab.now()
	if until != nil && !until.After(now) {
		return fmt.Errorf("%w: ban end must be in the future", domain.ErrValidation)
	}
	if err := s.uow.Repos().Accounts.SetBan(ctx, accountID, true, reason, until); err != nil {
		logger.ExitMethodWithError("accountService.Ban", err, "accountID", accountID)
		return err
	}

	msg := "Your account has been blocked."
	if until != nil {
		msg = fmt.Sprintf("Your account has been blocked until %s.", until.Format("2006-01-02 15:04"))
	}
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.collab.notify(ctx, accountID, msg)
	logger.ExitMethod("accountService.Ban", "accountID", accountID)
	return nil
}

func (s *accountService) Unban(ctx context.Context, staffID, accountID int64) error {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return err
	}
	if err := s.uow.Repos().Accounts.SetBan(ctx, accountID, false, "", nil); err != nil {
		return err
	}
	s.collab.notify(ctx, accountID, "Your account has been unblocked.")
	return nil
}

// Broadcast messages every account that is not banned and returns how many
// deliveries succeeded.
func (s *accountService) Broadcast(ctx context.Context, staffID int64, message string) (int, error) {
	if err := s.policy.RequireStaff(staffID); err != nil {
		return 0, err
	}
	if strings.TrimSpace(message) == "" {
		return 0, fmt.Errorf("%w: broadcast message is empty", domain.ErrValidation)
	}
	accounts, err := s.uow.Repos().Accounts.ListActive(ctx, s.collab.now())
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if s.collab.notify(ctx, a.ID, message) {
			delivered++
		}
	}
	logger.Info("Broadcast finished", "staff_id", staffID, "recipients", len(accounts), "delivered", delivered)
	return delivered, nil
}

func (s *accountService) LiftExpiredBans(ctx context.Context) (int64, error) {
	return s.uow.Repos().Accounts.LiftExpiredBans(ctx, s.collab.now())
}

func isDigits(v string) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return v != ""
}

// requireActive loads the account and refuses banned ones.
func requireActive(ctx context.Context, accounts repository.AccountRepository, id int64, now time.Time) (*domain.Account, error) {
	a, err := accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsBanned(now) {
		return nil, fmt.Errorf("account %d: %w", id, domain.ErrAccountBanned)
	}
	return a, nil
}
