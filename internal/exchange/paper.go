// Package exchange
package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperGateway proxies market data reads to a real exchange and keeps orders in memory.
// Resting orders are matched against the last traded price every time they are read.
type PaperGateway struct {
	market MarketData
	clock  clock.Clock
	rec    *journal.Recorder

	mu           sync.Mutex
	orders       map[string]*order.Order
	orderCounter int64
}

func NewPaperGateway(market MarketData, clk clock.Clock, rec *journal.Recorder) *PaperGateway {
	if clk == nil {
		clk = clock.Real{}
	}
	if rec == nil {
		rec = journal.Nop()
	}
	return &PaperGateway{
		market:       market,
		clock:        clk,
		rec:          rec,
		orders:       make(map[string]*order.Order),
		orderCounter: 1000, // Start from 1000 for paper order IDs
	}
}

func (p *PaperGateway) Name() string {
	return "paper"
}

// ===== PROXY FUNCTIONS - These call the real exchange =====

func (p *PaperGateway) ListSymbols(ctx context.Context) (map[string]bool, error) {
	return p.market.ListSymbols(ctx)
}

func (p *PaperGateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return p.market.LastPrice(ctx, symbol)
}

// Supports is true for every type; stops are simulated against the last trade price.
func (p *PaperGateway) Supports(t order.Type) bool {
	switch t {
	case order.Market, order.Limit, order.TakeProfit, order.Stop:
		return true
	}
	return false
}

// ===== SIMULATED FUNCTIONS =====

func (p *PaperGateway) remote(op, symbol, orderID string, err error) error {
	return &RemoteAPIError{Exchange: p.Name(), Op: op, Symbol: symbol, OrderID: orderID, Err: err}
}

func (p *PaperGateway) SubmitOrder(ctx context.Context, spec order.Spec) (order.Order, error) {
	select {
	case <-ctx.Done():
		return order.Order{}, ctx.Err()
	default:
	}

	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return order.Order{}, err
	}

	last, err := p.market.LastPrice(ctx, spec.Symbol)
	if err != nil {
		return order.Order{}, err
	}

	now := p.clock.Now().UTC()
	o := &order.Order{
		ClientOrderID: spec.ClientOrderID,
		Symbol:        spec.Symbol,
		Side:          spec.Side,
		Type:          spec.Type,
		Quantity:      spec.Quantity,
		Price:         spec.Price,
		StopPrice:     spec.StopPrice,
		ReduceOnly:    spec.ReduceOnly,
		TimeInForce:   spec.TimeInForce,
		Status:        order.StatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = uuid.NewString()
	}

	switch spec.Type {
	case order.Market:
		fill(o, last, now)
	case order.Limit:
		if crossed(o, last) {
			fill(o, o.Price, now)
		} else if o.TimeInForce == order.IOC || o.TimeInForce == order.FOK {
			o.Status = order.StatusExpired
		}
	case order.TakeProfit, order.Stop:
		if crossed(o, last) {
			return order.Order{}, p.remote("submit_order", spec.Symbol, "", fmt.Errorf("%w at last price %s", ErrWouldTrigger, last))
		}
	}

	p.mu.Lock()
	p.orderCounter++
	o.ID = fmt.Sprintf("paper_%d", p.orderCounter)
	p.orders[o.ID] = o
	out := *o
	p.mu.Unlock()

	p.rec.Debug(ctx, "order", "paper_order_accepted",
		zap.String("order_id", out.ID), zap.String("symbol", out.Symbol), zap.String("side", string(out.Side)),
		zap.String("type", string(out.Type)), zap.String("status", string(out.Status)))
	return out, nil
}

func (p *PaperGateway) GetOrder(ctx context.Context, symbol, orderID string) (order.Order, error) {
	select {
	case <-ctx.Done():
		return order.Order{}, ctx.Err()
	default:
	}

	p.mu.Lock()
	o, ok := p.orders[orderID]
	var live bool
	if ok {
		live = !o.Status.IsTerminal()
	}
	p.mu.Unlock()
	if !ok {
		return order.Order{}, p.remote("get_order", symbol, orderID, ErrOrderNotFound)
	}

	var last decimal.Decimal
	if live {
		var err error
		if last, err = p.market.LastPrice(ctx, o.Symbol); err != nil {
			return order.Order{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !o.Status.IsTerminal() && live && crossed(o, last) {
		price := last
		if o.Type == order.Limit || o.Type == order.TakeProfit {
			price = o.Price
		}
		fill(o, price, p.clock.Now().UTC())
	}
	return *o, nil
}

func (p *PaperGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return p.remote("cancel_order", symbol, orderID, ErrOrderNotFound)
	}
	if o.Status.IsTerminal() {
		return p.remote("cancel_order", symbol, orderID, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status))
	}
	o.Status = order.StatusCanceled
	o.UpdatedAt = p.clock.Now().UTC()
	return nil
}

// crossed reports whether the last price reached the order's trigger.
func crossed(o *order.Order, last decimal.Decimal) bool {
	if last.IsZero() {
		return false
	}
	switch o.Type {
	case order.Market:
		return true
	case order.Limit:
		if o.Side == order.Buy {
			return last.LessThanOrEqual(o.Price)
		}
		return last.GreaterThanOrEqual(o.Price)
	case order.TakeProfit:
		if o.Side == order.Sell {
			return last.GreaterThanOrEqual(o.StopPrice)
		}
		return last.LessThanOrEqual(o.StopPrice)
	case order.Stop:
		if o.Side == order.Sell {
			return last.LessThanOrEqual(o.StopPrice)
		}
		return last.GreaterThanOrEqual(o.StopPrice)
	}
	return false
}

func fill(o *order.Order, price decimal.Decimal, at time.Time) {
	o.Status = order.StatusFilled
	o.FilledQty = o.Quantity
	o.AvgPrice = price
	o.UpdatedAt = at
}
