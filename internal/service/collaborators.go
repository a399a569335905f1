package service

import (
	"context"
	"errors"
	"time"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
)

// Publisher pushes ad content to a chat destination.
type Publisher interface {
	Publish(ctx context.Context, chatID int64, ad *domain.Ad, pin bool) error
}

// Notifier sends a direct message to an account.
type Notifier interface {
	Notify(ctx context.Context, accountID int64, message string) error
}

// StaffAlerter tells the moderation team that something needs a decision.
type StaffAlerter interface {
	AlertStaff(ctx context.Context, subject, message string) error
}

// EventPublisher emits domain events after a transition commits.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// CartStore keeps staged placement carts. Load returns nil when there is none.
type CartStore interface {
	Load(ctx context.Context, accountID int64) (*domain.PlacementSelection, error)
	Save(ctx context.Context, sel *domain.PlacementSelection) error
	Delete(ctx context.Context, accountID int64) error
}

// StaffPolicy is the staff capability check.
type StaffPolicy interface {
	IsStaff(accountID int64) bool
	RequireStaff(accountID int64) error
}

// MultiAlerter fans an alert out to every alerter.
type MultiAlerter []StaffAlerter

func (m MultiAlerter) AlertStaff(ctx context.Context, subject, message string) error {
	var errs []error
	for _, a := range m {
		if err := a.AlertStaff(ctx, subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collaborators bundles the outbound dependencies shared by the services.
// Their failures are logged and never undo a committed transition.
type Collaborators struct {
	Publisher Publisher
	Notifier  Notifier
	Alerter   StaffAlerter
	Events    EventPublisher
	Clock     func() time.Time
}

type nopCollaborator struct{}

func (nopCollaborator) Publish(context.Context, int64, *domain.Ad, bool) error { return nil }
func (nopCollaborator) Notify(context.Context, int64, string) error            { return nil }
func (nopCollaborator) AlertStaff(context.Context, string, string) error       { return nil }

type nopEvents struct{}

func (nopEvents) Publish(context.Context, string, any) error { return nil }

func (c Collaborators) withDefaults() Collaborators {
	if c.Publisher == nil {
		c.Publisher = nopCollaborator{}
	}
	if c.Notifier == nil {
		c.Notifier = nopCollaborator{}
	}
	if c.Alerter == nil {
		c.Alerter = nopCollaborator{}
	}
	if c.Events == nil {
		c.Events = nopEvents{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

func (c Collaborators) now() time.Time {
	return c.Clock().UTC()
}

func (c Collaborators) notify(ctx context.Context, accountID int64, message string) bool {
	if err := c.Notifier.Notify(ctx, accountID, message); err != nil {
		logger.Warn("Notification failed", "account_id", accountID, "error", err)
		return false
	}
	return true
}

func (c Collaborators) alert(ctx context.Context, subject, message string) {
	if err := c.Alerter.AlertStaff(ctx, subject, message); err != nil {
		logger.Warn("Staff alert failed", "subject", subject, "error", err)
	}
}

func (c Collaborators) emit(ctx context.Context, routingKey string, payload any) {
	if err := c.Events.Publish(ctx, routingKey, payload); err != nil {
		logger.Warn("Event publish failed", "routing_key", routingKey, "error", err)
	}
}

const (
	EventAdSubmitted        = "ad.submitted"
	EventAdApproved         = "ad.approved"
	EventAdRejected         = "ad.rejected"
	EventAdDeactivated      = "ad.deactivated"
	EventAdExtended         = "ad.extended"
	EventSaleReserved       = "sale.reserved"
	EventSaleCompleted      = "sale.completed"
	EventSaleCanceled       = "sale.canceled"
	EventFundingRequested   = "funding.requested"
	EventFundingApproved    = "funding.approved"
	EventFundingRejected    = "funding.rejected"
	EventPlacementPurchased = "placement.purchased"
	EventBalanceAdjusted    = "balance.adjusted"
)
