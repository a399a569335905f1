package service

import (
	"context"
	"fmt"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

// saleService runs escrow purchases: funds leave the buyer on Reserve and go
// to the seller on Complete or back to the buyer on Cancel.
type saleService struct {
	uow    repository.UnitOfWork
	policy StaffPolicy
	collab Collaborators
}

func NewSaleService(uow repository.UnitOfWork, policy StaffPolicy, collab Collaborators) SaleService {
	return &saleService{uow: uow, policy: policy, collab: collab.withDefaults()}
}

func (s *saleService) Reserve(ctx context.Context, buyerID, adID int64) (*domain.Sale, error) {
	logger.EnterMethod("saleService.Reserve", "buyerID", buyerID, "adID", adID)
	now := s.collab.now()
	var sale *domain.Sale
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireActive(ctx, repos.Accounts, buyerID, now); err != nil {
			return err
		}
		ad, err := repos.Ads.GetForUpdate(ctx, adID)
		if err != nil {
			return err
		}
		if !ad.Publishable() {
			return fmt.Errorf("%w: ad %d is not available for purchase", domain.ErrInvalidTransition, adID)
		}
		if ad.OwnerID == buyerID {
			return fmt.Errorf("%w: account %d cannot buy its own ad", domain.ErrInvalidTransition, buyerID)
		}
		if !ad.Price.IsPositive() {
			return fmt.Errorf("%w: ad %d has no price", domain.ErrValidation, adID)
		}
		if _, err := debit(ctx, repos.Ledger, buyerID, ad.Price); err != nil {
			return err
		}
		sale = &domain.Sale{
			AdID:      ad.ID,
			BuyerID:   buyerID,
			SellerID:  ad.OwnerID,
			Amount:    ad.Price,
			Status:    domain.SaleStatusPending,
			CreatedAt: now,
		}
		return repos.Sales.Create(ctx, sale)
	})
	if err != nil {
		logger.ExitMethodWithError("saleService.Reserve", err, "buyerID", buyerID, "adID", adID)
		return nil, err
	}

	amount := sale.Amount.StringFixed(2)
	s.collab.notify(ctx, sale.BuyerID, fmt.Sprintf("%s is reserved for ad #%d. Confirm the deal once you receive the goods.", amount, sale.AdID))
	s.collab.notify(ctx, sale.SellerID, fmt.Sprintf("A buyer reserved %s for your ad #%d.", amount, sale.AdID))
	s.collab.emit(ctx, EventSaleReserved, sale)
	logger.ExitMethod("saleService.Reserve", "saleID", sale.ID)
	return sale, nil
}

func (s *saleService) Complete(ctx context.Context, buyerID, saleID int64) (*domain.Sale, error) {
	sale, err := s.settle(ctx, buyerID, saleID, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, sale.SellerID, fmt.Sprintf("The buyer confirmed sale #%d. %s was added to your balance.", sale.ID, sale.Amount.StringFixed(2)))
	s.collab.notify(ctx, sale.BuyerID, fmt.Sprintf("Sale #%d is complete.", sale.ID))
	s.collab.emit(ctx, EventSaleCompleted, sale)
	return sale, nil
}

func (s *saleService) Cancel(ctx context.Context, buyerID, saleID int64) (*domain.Sale, error) {
	sale, err := s.settle(ctx, buyerID, saleID, domain.SaleStatusCanceled)
	if err != nil {
		return nil, err
	}
	s.collab.notify(ctx, sale.BuyerID, fmt.Sprintf("Sale #%d was canceled. %s was returned to your balance.", sale.ID, sale.Amount.StringFixed(2)))
	s.collab.notify(ctx, sale.SellerID, fmt.Sprintf("The buyer canceled sale #%d.", sale.ID))
	s.collab.emit(ctx, EventSaleCanceled, sale)
	return sale, nil
}

// settle flips a pending sale to its terminal status and pays out the held
// amount in the same unit of work. Only one settlement can ever win.
func (s *saleService) settle(ctx context.Context, buyerID, saleID int64, to domain.SaleStatus) (*domain.Sale, error) {
	logger.EnterMethod("saleService.settle", "buyerID", buyerID, "saleID", saleID, "to", to)
	now := s.collab.now()
	var sale *domain.Sale
	err := s.uow.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		if sale, err = repos.Sales.GetByID(ctx, saleID); err != nil {
			return err
		}
		if sale.BuyerID != buyerID {
			return fmt.Errorf("%w: only the buyer can settle sale %d", domain.ErrForbidden, saleID)
		}
		ok, err := repos.Sales.Settle(ctx, saleID, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: sale %d", domain.ErrAlreadyProcessed, saleID)
		}
		payee := sale.SellerID
		if to == domain.SaleStatusCanceled {
			payee = sale.BuyerID
		}
		if _, err := credit(ctx, repos.Ledger, payee, sale.Amount); err != nil {
			return err
		}
		sale.Status, sale.SettledAt = to, &now
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("saleService.settle", err, "saleID", saleID)
		return nil, err
	}
	logger.ExitMethod("saleService.settle", "saleID", saleID, "status", to)
	return sale, nil
}

func (s *saleService) Get(ctx context.Context, viewerID, saleID int64) (*domain.Sale, error) {
	sale, err := s.uow.Repos().Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if viewerID != sale.BuyerID && viewerID != sale.SellerID && !s.policy.IsStaff(viewerID) {
		return nil, fmt.Errorf("%w: sale %d", domain.ErrForbidden, saleID)
	}
	return sale, nil
}

func (s *saleService) ListByAccount(ctx context.Context, accountID int64) ([]domain.Sale, error) {
	return s.uow.Repos().Sales.ListByAccount(ctx, accountID)
}
