package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/simple-executor/internal/exchange"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
	"github.com/amirphl/simple-executor/internal/validate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ocoKind = "oco"

type OCOParams struct {
	Symbol     string
	Side       order.Side
	Quantity   decimal.Decimal
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
	// OpenType is MARKET (default) or LIMIT at OpenPrice.
	OpenType  order.Type
	OpenPrice decimal.Decimal
	Poll      pair.Options
}

type OCOResult struct {
	Parent order.Order
	// Pair is nil when a child order could not be placed.
	Pair       *pair.OrderPair
	Resolution pair.Resolution
}

func (p *OCOParams) check() error {
	p.Symbol = exchange.NormalizeSymbol(p.Symbol)
	if p.OpenType == "" {
		p.OpenType = order.Market
	}
	if !p.Side.Valid() {
		return order.InvalidArgument("side must be BUY or SELL, got %q", p.Side)
	}
	if !p.Quantity.IsPositive() || !p.TakeProfit.IsPositive() || !p.StopLoss.IsPositive() {
		return order.InvalidArgument("quantity, take-profit and stop-loss must be positive")
	}
	switch p.Side {
	case order.Buy:
		if !p.TakeProfit.GreaterThan(p.StopLoss) {
			return order.InvalidArgument("take-profit %s must be above stop-loss %s for a BUY", p.TakeProfit, p.StopLoss)
		}
	case order.Sell:
		if !p.TakeProfit.LessThan(p.StopLoss) {
			return order.InvalidArgument("take-profit %s must be below stop-loss %s for a SELL", p.TakeProfit, p.StopLoss)
		}
	}
	switch p.OpenType {
	case order.Market:
		if !p.OpenPrice.IsZero() {
			return order.InvalidArgument("open price is only valid with a LIMIT open")
		}
	case order.Limit:
		if !p.OpenPrice.IsPositive() {
			return order.InvalidArgument("LIMIT open needs a positive open price")
		}
	default:
		return order.InvalidArgument("open type must be MARKET or LIMIT, got %q", p.OpenType)
	}
	if p.Poll.PollInterval <= 0 {
		return order.InvalidArgument("poll interval must be > 0, got %s", p.Poll.PollInterval)
	}
	if p.Poll.Timeout < 0 {
		return order.InvalidArgument("timeout cannot be negative, got %s", p.Poll.Timeout)
	}
	return nil
}

// OCO opens a position, places a reduce-only take-profit and stop on the opposite side and
// polls them until one wins. The returned result is filled as far as the run got.
func (r *Runner) OCO(ctx context.Context, p OCOParams) (*OCOResult, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	for _, t := range []order.Type{p.OpenType, order.TakeProfit, order.Stop} {
		if !r.gw.Supports(t) {
			return nil, fmt.Errorf("%s orders on %s: %w", t, r.gw.Name(), exchange.ErrUnsupportedType)
		}
	}
	if err := validate.RequireSymbol(ctx, r.gw, p.Symbol); err != nil {
		return nil, err
	}

	parent, err := r.gw.SubmitOrder(ctx, order.Spec{
		Symbol:   p.Symbol,
		Side:     p.Side,
		Type:     p.OpenType,
		Quantity: p.Quantity,
		Price:    p.OpenPrice,
	})
	if err != nil {
		r.rec.Error(ctx, ocoKind, "oco_open_failed", zap.String("symbol", p.Symbol), zap.Error(err))
		return nil, err
	}
	r.saveOrder(ctx, parent)
	r.rec.Info(ctx, ocoKind, "oco_open_order", orderFields(parent)...)
	res := &OCOResult{Parent: parent, Resolution: pair.Pending}

	closing := p.Side.Opposite()
	tp, err := r.gw.SubmitOrder(ctx, order.Spec{
		Symbol:      p.Symbol,
		Side:        closing,
		Type:        order.TakeProfit,
		Quantity:    p.Quantity,
		Price:       p.TakeProfit,
		StopPrice:   p.TakeProfit,
		ReduceOnly:  true,
		TimeInForce: order.GTC,
	})
	if err != nil {
		r.rec.Error(ctx, ocoKind, "oco_place_child_failed",
			zap.String("child", "take_profit"), zap.String("parent_order_id", parent.ID), zap.Error(err))
		r.notify(ctx, fmt.Sprintf("OCO %s: position %s opened but take-profit failed: %v", p.Symbol, parent.ID, err))
		return res, fmt.Errorf("take-profit for parent %s: %w", parent.ID, err)
	}
	r.saveOrder(ctx, tp)

	sl, err := r.gw.SubmitOrder(ctx, order.Spec{
		Symbol:     p.Symbol,
		Side:       closing,
		Type:       order.Stop,
		Quantity:   p.Quantity,
		StopPrice:  p.StopLoss,
		ReduceOnly: true,
	})
	if err != nil {
		r.rec.Error(ctx, ocoKind, "oco_place_child_failed",
			zap.String("child", "stop_loss"), zap.String("parent_order_id", parent.ID),
			zap.String("orphan_order_id", tp.ID), zap.Error(err))
		r.notify(ctx, fmt.Sprintf("OCO %s: stop-loss failed, take-profit %s left open: %v", p.Symbol, tp.ID, err))
		return res, fmt.Errorf("stop-loss for parent %s (take-profit %s left open): %w", parent.ID, tp.ID, err)
	}
	r.saveOrder(ctx, sl)
	r.rec.Info(ctx, ocoKind, "oco_child_orders_placed",
		zap.String("parent_order_id", parent.ID), zap.String("tp_order_id", tp.ID), zap.String("sl_order_id", sl.ID))

	op := pair.New(parent.ID, tp, sl, r.clock.Now())
	res.Pair = op
	trackErr := r.pairs.Track(ctx, op)

	outcome, err := r.pairs.Resolve(ctx, op, p.Poll)
	res.Resolution = outcome
	r.saveOrder(ctx, op.TakeProfit)
	r.saveOrder(ctx, op.StopLoss)
	r.notifyPair(ctx, op, err)

	return res, errors.Join(trackErr, err)
}

// Resume polls a stored pair again with fresh options.
func (r *Runner) Resume(ctx context.Context, pairID string, opts pair.Options) (*pair.OrderPair, error) {
	op, err := r.pairs.Get(ctx, pairID)
	if err != nil {
		return nil, err
	}
	r.rec.Info(ctx, ocoKind, "oco_resume", zap.String("pair_id", op.ID), zap.String("resolution", string(op.Resolution)))

	_, err = r.pairs.Resolve(ctx, op, opts)
	r.saveOrder(ctx, op.TakeProfit)
	r.saveOrder(ctx, op.StopLoss)
	r.notifyPair(ctx, op, err)
	return op, err
}

func (r *Runner) notifyPair(ctx context.Context, op *pair.OrderPair, err error) {
	switch {
	case err != nil && op.Resolution == pair.Pending:
		r.notify(ctx, fmt.Sprintf("OCO pair %s on %s stopped while pending: %v", op.ID, op.Symbol, err))
	case err != nil:
		r.notify(ctx, fmt.Sprintf("OCO pair %s on %s needs attention (%s): %v", op.ID, op.Symbol, op.Resolution, err))
	case op.Resolution == pair.TimedOut:
		r.notify(ctx, fmt.Sprintf("OCO pair %s on %s timed out, both children still open", op.ID, op.Symbol))
	default:
		r.notify(ctx, fmt.Sprintf("OCO pair %s on %s resolved %s", op.ID, op.Symbol, op.Resolution))
	}
}
