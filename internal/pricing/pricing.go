package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

// DefaultPinMultiplier is applied to the single-post price of a channel to price a pin.
var DefaultPinMultiplier = decimal.RequireFromString("1.6")

// Fees are the flat marking fees charged once per placement purchase.
type Fees struct {
	Batch  decimal.Decimal
	Single decimal.Decimal
}

// DefaultFees mirrors the fees charged by the exchange today.
var DefaultFees = Fees{
	Batch:  decimal.NewFromInt(350),
	Single: decimal.NewFromInt(50),
}

// Engine prices placements from channel price tables.
type Engine struct {
	pinMultiplier decimal.Decimal
	fees          Fees
}

func NewEngine(pinMultiplier decimal.Decimal, fees Fees) *Engine {
	if !pinMultiplier.IsPositive() {
		pinMultiplier = DefaultPinMultiplier
	}
	return &Engine{pinMultiplier: pinMultiplier, fees: fees}
}

// UnitPrice returns the cost of quantity posts in the channel. An exact tier
// (1, 5 or 10) with a positive price wins; anything else falls back to
// price_for_1 × quantity.
func UnitPrice(ch *domain.Channel, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if tier, ok := tierPrice(ch, quantity); ok {
		return tier, nil
	}
	return ch.PriceFor1.Mul(decimal.NewFromInt(int64(quantity))), nil
}

func tierPrice(ch *domain.Channel, quantity int) (decimal.Decimal, bool) {
	var p decimal.Decimal
	switch quantity {
	case 1:
		p = ch.PriceFor1
	case 5:
		p = ch.PriceFor5
	case 10:
		p = ch.PriceFor10
	default:
		return decimal.Zero, false
	}
	if !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}

// PinPrice is the quantity-1 cost scaled by the pin multiplier.
func (e *Engine) PinPrice(ch *domain.Channel) decimal.Decimal {
	return ch.PriceFor1.Mul(e.pinMultiplier).Round(2)
}

// Line prices a single pick against its channel.
func (e *Engine) Line(ch *domain.Channel, pick domain.Pick) (domain.PlacementLine, error) {
	if err := pick.Validate(); err != nil {
		return domain.PlacementLine{}, err
	}
	line := domain.PlacementLine{
		ChannelID:    ch.ID,
		ChannelTitle: ch.Title,
		Quantity:     pick.Quantity,
		Pin:          pick.Pin,
	}
	if pick.Pin {
		line.Quantity = 1
		line.Cost = e.PinPrice(ch)
		line.UnitPrice = line.Cost
		return line, nil
	}
	cost, err := UnitPrice(ch, pick.Quantity)
	if err != nil {
		return domain.PlacementLine{}, err
	}
	line.Cost = cost
	line.UnitPrice = cost.DivRound(decimal.NewFromInt(int64(pick.Quantity)), 2)
	return line, nil
}

// Fee returns the marking fee for the placement mode.
func (e *Engine) Fee(mode domain.PlacementMode) decimal.Decimal {
	if mode == domain.PlacementSingle {
		return e.fees.Single
	}
	return e.fees.Batch
}

// CartTotal sums line costs and adds the marking fee once.
func (e *Engine) CartTotal(lines []domain.PlacementLine, mode domain.PlacementMode) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Cost)
	}
	return total.Add(e.Fee(mode))
}

// Quote prices every pick. channels must hold each picked channel by id.
func (e *Engine) Quote(channels map[int64]*domain.Channel, picks []domain.Pick, mode domain.PlacementMode) (*domain.Quote, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown placement mode %q", domain.ErrValidation, mode)
	}
	if len(picks) == 0 {
		return nil, fmt.Errorf("%w: no channels selected", domain.ErrValidation)
	}
	if mode == domain.PlacementSingle && len(picks) != 1 {
		return nil, fmt.Errorf("%w: single placement takes exactly one channel, got %d", domain.ErrValidation, len(picks))
	}

	seen := make(map[int64]bool, len(picks))
	lines := make([]domain.PlacementLine, 0, len(picks))
	placement := decimal.Zero
	for _, pick := range picks {
		if seen[pick.ChannelID] {
			return nil, fmt.Errorf("%w: channel %d selected twice", domain.ErrValidation, pick.ChannelID)
		}
		seen[pick.ChannelID] = true

		ch, ok := channels[pick.ChannelID]
		if !ok || !ch.Active {
			return nil, fmt.Errorf("%w: channel %d", domain.ErrNotFound, pick.ChannelID)
		}
		line, err := e.Line(ch, pick)
		if err != nil {
			return nil, err
		}
		placement = placement.Add(line.Cost)
		lines = append(lines, line)
	}

	fee := e.Fee(mode)
	return &domain.Quote{
		Mode:           mode,
		Lines:          lines,
		PlacementTotal: placement,
		MarkingFee:     fee,
		Total:          placement.Add(fee),
	}, nil
}
