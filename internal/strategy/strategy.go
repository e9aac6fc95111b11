// Package strategy runs the order scripts: single orders, OCO pairs, TWAP slices and grids.
package strategy

import (
	"context"
	"strings"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/exchange"
	"github.com/amirphl/simple-executor/internal/grid"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/notifier"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
	"github.com/amirphl/simple-executor/internal/twap"
	"github.com/amirphl/simple-executor/internal/validate"
	"go.uber.org/zap"
)

const journalKind = "order"

// Store is the persistence a runner writes to. Nil disables persistence.
type Store interface {
	pair.Store
	order.OrderManager
}

type Options struct {
	QuantityPrecision int32
	PricePrecision    int32
}

// Runner owns one gateway and every component that submits through it.
type Runner struct {
	gw       exchange.Gateway
	store    Store
	notifier notifier.Notifier
	clock    clock.Clock
	rec      *journal.Recorder

	pairs  *pair.Manager
	slices *twap.Scheduler
	grid   *grid.Placer

	opts Options
}

func New(gw exchange.Gateway, store Store, n notifier.Notifier, clk clock.Clock, rec *journal.Recorder, opts Options) *Runner {
	if clk == nil {
		clk = clock.Real{}
	}
	if rec == nil {
		rec = journal.Nop()
	}
	if n == nil {
		n = notifier.Nop{}
	}
	return &Runner{
		gw:       gw,
		store:    store,
		notifier: n,
		clock:    clk,
		rec:      rec,
		pairs:    pair.NewManager(gw, store, clk, rec),
		slices:   twap.NewScheduler(clk, rec),
		grid:     grid.NewPlacer(gw, rec),
		opts:     opts,
	}
}

// Market places a single market order.
func (r *Runner) Market(ctx context.Context, spec order.Spec) (order.Order, error) {
	spec.Type = order.Market
	return r.place(ctx, spec, "market_order_placed")
}

// Limit places a single limit order. TimeInForce defaults to GTC.
func (r *Runner) Limit(ctx context.Context, spec order.Spec) (order.Order, error) {
	spec.Type = order.Limit
	return r.place(ctx, spec, "limit_order_placed")
}

func (r *Runner) place(ctx context.Context, spec order.Spec, event string) (order.Order, error) {
	spec = spec.Normalize()
	spec.Symbol = exchange.NormalizeSymbol(spec.Symbol)
	if err := spec.Validate(); err != nil {
		return order.Order{}, err
	}
	if err := validate.RequireSymbol(ctx, r.gw, spec.Symbol); err != nil {
		return order.Order{}, err
	}

	o, err := r.gw.SubmitOrder(ctx, spec)
	if err != nil {
		r.rec.Error(ctx, journalKind, strings.TrimSuffix(event, "_placed")+"_failed",
			zap.String("symbol", spec.Symbol), zap.String("side", string(spec.Side)), zap.Error(err))
		return order.Order{}, err
	}
	r.saveOrder(ctx, o)
	r.rec.Info(ctx, journalKind, event, orderFields(o)...)
	return o, nil
}

// Pending lists pairs a previous run left open.
func (r *Runner) Pending(ctx context.Context) ([]pair.OrderPair, error) {
	return r.pairs.Pending(ctx)
}

func (r *Runner) saveOrder(ctx context.Context, o order.Order) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveOrder(ctx, o); err != nil {
		r.rec.Error(ctx, journalKind, "order_save_failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// notify never fails the operation; a lost notification is only logged.
func (r *Runner) notify(ctx context.Context, msg string) {
	if err := r.notifier.Send(ctx, msg); err != nil {
		r.rec.Warn(ctx, "notify", "notification_failed", zap.String("message", msg), zap.Error(err))
	}
}

func orderFields(o order.Order) []zap.Field {
	return []zap.Field{
		zap.String("order_id", o.ID),
		zap.String("client_order_id", o.ClientOrderID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("quantity", o.Quantity.String()),
		zap.String("price", o.Price.String()),
		zap.String("status", string(o.Status)),
	}
}
