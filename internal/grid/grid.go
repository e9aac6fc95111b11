// Package grid places resting buy and sell limit orders across evenly spaced price levels.
package grid

import (
	"context"
	"fmt"

	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const journalKind = "grid"

type Submitter interface {
	SubmitOrder(ctx context.Context, spec order.Spec) (order.Order, error)
}

// Level is one grid price with the orders placed on it. Sell is zero when the level
// failed halfway.
type Level struct {
	Price decimal.Decimal
	Buy   order.Order
	Sell  order.Order
}

// Levels returns steps+1 prices from low to high inclusive, rounded to precision.
func Levels(low, high decimal.Decimal, steps int, precision int32) ([]decimal.Decimal, error) {
	if !low.IsPositive() || !high.IsPositive() {
		return nil, order.InvalidArgument("grid bounds must be positive, got %s..%s", low, high)
	}
	if high.LessThanOrEqual(low) {
		return nil, order.InvalidArgument("high price must be > low price, got %s <= %s", high, low)
	}
	if steps < 1 {
		return nil, order.InvalidArgument("steps must be >= 1, got %d", steps)
	}
	if precision < 0 {
		return nil, order.InvalidArgument("precision cannot be negative, got %d", precision)
	}

	step := high.Sub(low).Div(decimal.NewFromInt(int64(steps)))
	levels := make([]decimal.Decimal, 0, steps+1)
	for i := 0; i <= steps; i++ {
		p := low.Add(step.Mul(decimal.NewFromInt(int64(i))))
		if i == steps {
			p = high
		}
		levels = append(levels, p.Round(precision))
	}
	return levels, nil
}

// PartialPlacementError lists the levels placed before a submit failed. Placed orders are
// left resting.
type PartialPlacementError struct {
	Placed []Level
	Price  decimal.Decimal
	Err    error
}

func (e *PartialPlacementError) Error() string {
	return fmt.Sprintf("grid placement stopped at %s after %d levels: %v", e.Price, len(e.Placed), e.Err)
}

func (e *PartialPlacementError) Unwrap() error {
	return e.Err
}

type Placer struct {
	gw  Submitter
	rec *journal.Recorder
}

func NewPlacer(gw Submitter, rec *journal.Recorder) *Placer {
	if rec == nil {
		rec = journal.Nop()
	}
	return &Placer{gw: gw, rec: rec}
}

// Place submits a GTC buy and a GTC sell limit order of qty at every level, lowest first.
func (p *Placer) Place(ctx context.Context, symbol string, levels []decimal.Decimal, qty decimal.Decimal) ([]Level, error) {
	if !qty.IsPositive() {
		return nil, order.InvalidArgument("quantity per order must be positive, got %s", qty)
	}

	placed := make([]Level, 0, len(levels))
	for _, price := range levels {
		lvl := Level{Price: price}

		buy, err := p.submit(ctx, symbol, order.Buy, price, qty)
		if err != nil {
			return placed, p.fail(ctx, placed, price, order.Buy, err)
		}
		lvl.Buy = buy

		sell, err := p.submit(ctx, symbol, order.Sell, price, qty)
		if err != nil {
			placed = append(placed, lvl)
			return placed, p.fail(ctx, placed, price, order.Sell, err)
		}
		lvl.Sell = sell
		placed = append(placed, lvl)

		p.rec.Info(ctx, journalKind, "grid_order_placed",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.String("buy_id", buy.ID),
			zap.String("sell_id", sell.ID))
	}
	return placed, nil
}

func (p *Placer) submit(ctx context.Context, symbol string, side order.Side, price, qty decimal.Decimal) (order.Order, error) {
	return p.gw.SubmitOrder(ctx, order.Spec{
		Symbol:      symbol,
		Side:        side,
		Type:        order.Limit,
		Quantity:    qty,
		Price:       price,
		TimeInForce: order.GTC,
	})
}

func (p *Placer) fail(ctx context.Context, placed []Level, price decimal.Decimal, side order.Side, err error) error {
	p.rec.Error(ctx, journalKind, "grid_place_failed",
		zap.String("price", price.String()),
		zap.String("side", string(side)),
		zap.Int("placed", len(placed)),
		zap.Error(err))
	return &PartialPlacementError{Placed: placed, Price: price, Err: err}
}
