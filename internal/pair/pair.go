// Package pair resolves take-profit / stop-loss order pairs: once one side fills the other
// is cancelled exactly once.
package pair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/simple-executor/internal/order"
	"github.com/google/uuid"
)

type Resolution string

const (
	Pending        Resolution = "PENDING"
	TPWon          Resolution = "TP_WON"
	SLWon          Resolution = "SL_WON"
	BothUnresolved Resolution = "BOTH_UNRESOLVED"
	TimedOut       Resolution = "TIMED_OUT"
)

// Final reports whether the pair needs no more polling. TIMED_OUT pairs still have two live
// orders and can be resumed.
func (r Resolution) Final() bool {
	return r == TPWon || r == SLWon || r == BothUnresolved
}

// OrderPair ties two reduce-only children closing one parent position.
type OrderPair struct {
	ID            string      `json:"id"`
	Symbol        string      `json:"symbol"`
	ParentOrderID string      `json:"parent_order_id"`
	TakeProfit    order.Order `json:"take_profit"`
	StopLoss      order.Order `json:"stop_loss"`
	Resolution    Resolution  `json:"resolution"`
	CancelError   string      `json:"cancel_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// New builds a PENDING pair from two submitted children.
func New(parentOrderID string, tp, sl order.Order, now time.Time) *OrderPair {
	return &OrderPair{
		ID:            uuid.NewString(),
		Symbol:        tp.Symbol,
		ParentOrderID: parentOrderID,
		TakeProfit:    tp,
		StopLoss:      sl,
		Resolution:    Pending,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
}

func (p *OrderPair) validate() error {
	if p.TakeProfit.ID == "" || p.StopLoss.ID == "" {
		return order.InvalidArgument("pair %s: both child orders must exist on the exchange", p.ID)
	}
	if p.TakeProfit.Symbol != p.Symbol || p.StopLoss.Symbol != p.Symbol {
		return order.InvalidArgument("pair %s: children must trade %s", p.ID, p.Symbol)
	}
	if p.TakeProfit.Side != p.StopLoss.Side {
		return order.InvalidArgument("pair %s: children must close the same position side", p.ID)
	}
	if !p.TakeProfit.ReduceOnly || !p.StopLoss.ReduceOnly {
		return order.InvalidArgument("pair %s: children must be reduce-only", p.ID)
	}
	return nil
}

// ErrChildrenClosed is reported when both children ended without a qualifying fill.
var ErrChildrenClosed = errors.New("both child orders closed without a fill")

// UnresolvedPairError carries both observed children and the failure that left the pair
// without a clean one-cancels-other outcome.
type UnresolvedPairError struct {
	PairID     string
	TakeProfit order.Order
	StopLoss   order.Order
	Err        error
}

func (e *UnresolvedPairError) Error() string {
	return fmt.Sprintf("pair %s unresolved (tp %s=%s, sl %s=%s): %v",
		e.PairID, e.TakeProfit.ID, e.TakeProfit.Status, e.StopLoss.ID, e.StopLoss.Status, e.Err)
}

func (e *UnresolvedPairError) Unwrap() error {
	return e.Err
}

// Store is the pair registry. Pairs are saved on creation and on every resolution change
// so that a restarted process can at least report what was left open.
type Store interface {
	SavePair(ctx context.Context, p OrderPair) error
	GetPair(ctx context.Context, id string) (*OrderPair, error)
	GetPendingPairs(ctx context.Context) ([]OrderPair, error)
}
