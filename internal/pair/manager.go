package pair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"go.uber.org/zap"
)

const journalKind = "pair"

// Decision is what one poll of both children asks the manager to do.
type Decision int

const (
	Wait Decision = iota
	CancelStopLoss
	CancelTakeProfit
	ChildrenClosed
)

// Decide is a pure function of the two statuses observed in one poll. The take-profit is
// checked first, so a poll that sees both filled resolves as TP_WON.
func Decide(tp, sl order.Status) Decision {
	if tp == order.StatusFilled {
		return CancelStopLoss
	}
	if sl == order.StatusFilled || sl == order.StatusPartiallyFilled {
		return CancelTakeProfit
	}
	if tp.IsTerminal() && sl.IsTerminal() {
		return ChildrenClosed
	}
	return Wait
}

// OrderGateway is the part of the exchange the manager needs.
type OrderGateway interface {
	GetOrder(ctx context.Context, symbol, orderID string) (order.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

type Options struct {
	PollInterval time.Duration
	// Timeout of zero polls until a resolution or until ctx is done.
	Timeout time.Duration
}

type Manager struct {
	gw    OrderGateway
	store Store
	clock clock.Clock
	rec   *journal.Recorder
}

// NewManager returns a manager. store may be nil, in which case pairs live only in memory.
func NewManager(gw OrderGateway, store Store, clk clock.Clock, rec *journal.Recorder) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if rec == nil {
		rec = journal.Nop()
	}
	return &Manager{gw: gw, store: store, clock: clk, rec: rec}
}

// Track registers a freshly created pair in the registry.
func (m *Manager) Track(ctx context.Context, p *OrderPair) error {
	if err := p.validate(); err != nil {
		return err
	}
	m.rec.Info(ctx, journalKind, "pair_created", pairFields(p)...)
	return m.save(ctx, p)
}

// Pending lists pairs a previous run left without a final resolution.
func (m *Manager) Pending(ctx context.Context) ([]OrderPair, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.GetPendingPairs(ctx)
}

// Get loads a pair from the registry.
func (m *Manager) Get(ctx context.Context, id string) (*OrderPair, error) {
	if m.store == nil {
		return nil, fmt.Errorf("pair %s: no registry configured", id)
	}
	p, err := m.store.GetPair(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load pair %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("pair %s not found", id)
	}
	return p, nil
}

// Resolve polls both children until one of them wins, the timeout elapses or ctx is done.
// The losing child is cancelled at most once; a failed cancel is reported as
// BOTH_UNRESOLVED together with an *UnresolvedPairError.
func (m *Manager) Resolve(ctx context.Context, p *OrderPair, opts Options) (Resolution, error) {
	if opts.PollInterval <= 0 {
		return Pending, order.InvalidArgument("poll interval must be > 0, got %s", opts.PollInterval)
	}
	if opts.Timeout < 0 {
		return Pending, order.InvalidArgument("timeout cannot be negative, got %s", opts.Timeout)
	}
	if err := p.validate(); err != nil {
		return Pending, err
	}
	if p.Resolution.Final() {
		return p.Resolution, nil
	}

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = m.clock.Now().Add(opts.Timeout)
	}

	for polls := 1; ; polls++ {
		tp, err := m.gw.GetOrder(ctx, p.Symbol, p.TakeProfit.ID)
		if err != nil {
			m.rec.Error(ctx, journalKind, "pair_poll_failed", zap.String("pair_id", p.ID), zap.String("order_id", p.TakeProfit.ID), zap.Error(err))
			return Pending, err
		}
		sl, err := m.gw.GetOrder(ctx, p.Symbol, p.StopLoss.ID)
		if err != nil {
			m.rec.Error(ctx, journalKind, "pair_poll_failed", zap.String("pair_id", p.ID), zap.String("order_id", p.StopLoss.ID), zap.Error(err))
			return Pending, err
		}
		observe(&p.TakeProfit, tp)
		observe(&p.StopLoss, sl)

		m.rec.Debug(ctx, journalKind, "pair_poll",
			zap.String("pair_id", p.ID), zap.Int("poll", polls),
			zap.String("tp_status", string(tp.Status)), zap.String("sl_status", string(sl.Status)))

		switch Decide(tp.Status, sl.Status) {
		case CancelStopLoss:
			m.rec.Info(ctx, journalKind, "pair_tp_filled", pairFields(p)...)
			return m.settle(ctx, p, TPWon, p.StopLoss)
		case CancelTakeProfit:
			m.rec.Info(ctx, journalKind, "pair_sl_filled", pairFields(p)...)
			return m.settle(ctx, p, SLWon, p.TakeProfit)
		case ChildrenClosed:
			perr := &UnresolvedPairError{PairID: p.ID, TakeProfit: p.TakeProfit, StopLoss: p.StopLoss, Err: ErrChildrenClosed}
			m.rec.Error(ctx, journalKind, "pair_children_closed", pairFields(p)...)
			return m.finish(ctx, p, BothUnresolved, perr)
		}

		now := m.clock.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			m.rec.Warn(ctx, journalKind, "pair_timed_out", append(pairFields(p), zap.Int("polls", polls))...)
			return m.finish(ctx, p, TimedOut, nil)
		}

		wait := opts.PollInterval
		if !deadline.IsZero() && deadline.Sub(now) < wait {
			wait = deadline.Sub(now)
		}
		if err := m.clock.Sleep(ctx, wait); err != nil {
			m.rec.Warn(ctx, journalKind, "pair_aborted", append(pairFields(p), zap.Error(err))...)
			return Pending, err
		}
	}
}

// settle cancels the loser. This is the only cancel the manager ever issues for a pair.
func (m *Manager) settle(ctx context.Context, p *OrderPair, outcome Resolution, loser order.Order) (Resolution, error) {
	if err := m.gw.CancelOrder(ctx, p.Symbol, loser.ID); err != nil {
		p.CancelError = err.Error()
		m.rec.Error(ctx, journalKind, "pair_cancel_failed",
			append(pairFields(p), zap.String("loser_id", loser.ID), zap.String("wanted", string(outcome)), zap.Error(err))...)
		perr := &UnresolvedPairError{PairID: p.ID, TakeProfit: p.TakeProfit, StopLoss: p.StopLoss, Err: err}
		return m.finish(ctx, p, BothUnresolved, perr)
	}
	m.rec.Info(ctx, journalKind, "pair_resolved", append(pairFields(p), zap.String("resolution", string(outcome)), zap.String("canceled_id", loser.ID))...)
	return m.finish(ctx, p, outcome, nil)
}

func (m *Manager) finish(ctx context.Context, p *OrderPair, r Resolution, cause error) (Resolution, error) {
	p.Resolution = r
	p.UpdatedAt = m.clock.Now().UTC()
	if err := m.save(ctx, p); err != nil {
		return r, errors.Join(cause, err)
	}
	return r, cause
}

func (m *Manager) save(ctx context.Context, p *OrderPair) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SavePair(ctx, *p); err != nil {
		m.rec.Error(ctx, journalKind, "pair_save_failed", zap.String("pair_id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to save pair %s: %w", p.ID, err)
	}
	return nil
}

// observe copies exchange-owned fields, keeping what was known at submission.
func observe(dst *order.Order, got order.Order) {
	dst.Status = got.Status
	dst.FilledQty = got.FilledQty
	dst.AvgPrice = got.AvgPrice
	if !got.UpdatedAt.IsZero() {
		dst.UpdatedAt = got.UpdatedAt
	}
}

func pairFields(p *OrderPair) []zap.Field {
	return []zap.Field{
		zap.String("pair_id", p.ID),
		zap.String("symbol", p.Symbol),
		zap.String("parent_order_id", p.ParentOrderID),
		zap.String("tp_order_id", p.TakeProfit.ID),
		zap.String("tp_status", string(p.TakeProfit.Status)),
		zap.String("sl_order_id", p.StopLoss.ID),
		zap.String("sl_status", string(p.StopLoss.Status)),
	}
}
