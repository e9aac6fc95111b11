package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/simple-executor/internal/exchange"
	"github.com/amirphl/simple-executor/internal/grid"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/twap"
	"github.com/amirphl/simple-executor/internal/validate"
	"github.com/shopspring/decimal"
)

type TWAPParams struct {
	Symbol   string
	Side     order.Side
	Quantity decimal.Decimal
	Slices   int
	Duration time.Duration
}

// TWAP submits Quantity as Slices market orders spread evenly over Duration.
func (r *Runner) TWAP(ctx context.Context, p TWAPParams) ([]order.Order, error) {
	symbol := exchange.NormalizeSymbol(p.Symbol)
	if !p.Side.Valid() {
		return nil, order.InvalidArgument("side must be BUY or SELL, got %q", p.Side)
	}
	plan, err := twap.Schedule(p.Quantity, p.Slices, p.Duration, r.opts.QuantityPrecision)
	if err != nil {
		return nil, err
	}
	if err := validate.RequireSymbol(ctx, r.gw, symbol); err != nil {
		return nil, err
	}

	results, err := r.slices.Execute(ctx, plan, func(ctx context.Context, index int, qty decimal.Decimal) (order.Order, error) {
		o, err := r.gw.SubmitOrder(ctx, order.Spec{Symbol: symbol, Side: p.Side, Type: order.Market, Quantity: qty})
		if err != nil {
			return o, err
		}
		r.saveOrder(ctx, o)
		return o, nil
	})
	if err != nil {
		r.notify(ctx, fmt.Sprintf("TWAP %s %s stopped after %d of %d slices: %v", p.Side, symbol, len(results), plan.SliceCount, err))
	}
	return results, err
}

type GridParams struct {
	Symbol   string
	Low      decimal.Decimal
	High     decimal.Decimal
	Steps    int
	Quantity decimal.Decimal
}

// Grid rests a buy and a sell limit order at every level between Low and High.
func (r *Runner) Grid(ctx context.Context, p GridParams) ([]grid.Level, error) {
	symbol := exchange.NormalizeSymbol(p.Symbol)
	levels, err := grid.Levels(p.Low, p.High, p.Steps, r.opts.PricePrecision)
	if err != nil {
		return nil, err
	}
	if !p.Quantity.IsPositive() {
		return nil, order.InvalidArgument("quantity per order must be positive, got %s", p.Quantity)
	}
	if err := validate.RequireSymbol(ctx, r.gw, symbol); err != nil {
		return nil, err
	}

	placed, err := r.grid.Place(ctx, symbol, levels, p.Quantity)
	for _, lvl := range placed {
		r.saveOrder(ctx, lvl.Buy)
		if lvl.Sell.ID != "" {
			r.saveOrder(ctx, lvl.Sell)
		}
	}
	if err != nil {
		r.notify(ctx, fmt.Sprintf("grid %s stopped after %d of %d levels: %v", symbol, len(placed), len(levels), err))
	}
	return placed, err
}
