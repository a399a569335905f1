package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type PlacementKind string

const (
	PlacementStandard PlacementKind = "standard"
	PlacementExchange PlacementKind = "exchange"
)

type Ad struct {
	ID          int64            `json:"id"`
	OwnerID     int64            `json:"owner_id"`
	Title       string           `json:"title"`
	Text        string           `json:"text"`
	Price       decimal.Decimal  `json:"price"`
	Quantity    int              `json:"quantity"`
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory"`
	City        string           `json:"city"`
	Contact     string           `json:"contact"`
	Photos      []string         `json:"photos"`
	Status      ModerationStatus `json:"moderation_status"`
	Active      bool             `json:"active"`
	Kind        PlacementKind    `json:"placement_kind"`
	// ChannelID is the purchased destination of an exchange placement.
	ChannelID *int64    `json:"channel_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publishable reports whether the ad may be published or purchased.
func (a *Ad) Publishable() bool {
	return a.Status == ModerationApproved && a.Active
}

// CanModerate reports whether moving from the current status to next is legal.
func (a *Ad) CanModerate(next ModerationStatus) bool {
	switch a.Status {
	case ModerationPending:
		return next == ModerationApproved || next == ModerationRejected
	case ModerationApproved:
		return next == ModerationRejected
	}
	return false
}

// ExtensionEligible reports whether the owner may ask for a renewal: the ad is
// inactive, has reached its lifetime, or has at most window left.
func (a *Ad) ExtensionEligible(now time.Time, lifetime, window time.Duration) bool {
	if !a.Active {
		return true
	}
	age := now.Sub(a.CreatedAt)
	return age >= lifetime || lifetime-age <= window
}

// AdSubmission is a finalized ad payload collected by the chat front-end.
type AdSubmission struct {
	Title       string          `json:"title"`
	Text        string          `json:"text"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	City        string          `json:"city"`
	Contact     string          `json:"contact"`
	Photos      []string        `json:"photos"`
}

func (s *AdSubmission) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: ad text is required", ErrValidation)
	}
	if err := ValidatePrice("price", s.Price); err != nil {
		return err
	}
	if s.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if s.Quantity == 0 {
		s.Quantity = 1
	}
	return nil
}

// NewAd builds a pending, active ad from a submission.
func (s *AdSubmission) NewAd(ownerID int64, kind PlacementKind, now time.Time) *Ad {
	photos := make([]string, len(s.Photos))
	copy(photos, s.Photos)
	return &Ad{
		OwnerID:     ownerID,
		Title:       s.Title,
		Text:        s.Text,
		Price:       s.Price,
		Quantity:    s.Quantity,
		Category:    s.Category,
		Subcategory: s.Subcategory,
		City:        s.City,
		Contact:     s.Contact,
		Photos:      photos,
		Status:      ModerationPending,
		Active:      true,
		Kind:        kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type AdFilter struct {
	Category string
	City     string
	Query    string
	Limit    int
	Offset   int
}

type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// ExtensionRequest asks staff for a free renewal of an ad.
type ExtensionRequest struct {
	ID        int64           `json:"id"`
	AdID      int64           `json:"ad_id"`
	OwnerID   int64           `json:"owner_id"`
	Status    ExtensionStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
	DecidedBy *int64          `json:"decided_by,omitempty"`
}
