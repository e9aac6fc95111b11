// Package order
package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

type Type string

const (
	Market     Type = "MARKET"
	Limit      Type = "LIMIT"
	TakeProfit Type = "TAKE_PROFIT"
	Stop       Type = "STOP"
)

type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
)

// Status is the exchange reported order state. It is only ever observed.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCanceled        Status = "CANCELED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
)

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// ParseStatus maps an exchange status string onto Status. Unknown values map to NEW so
// that an unrecognized live state never looks like a fill.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEW", "OPEN", "PENDING":
		return StatusNew
	case "PARTIALLY_FILLED", "PARTIAL_FILLED", "PARTIALLY-FILLED":
		return StatusPartiallyFilled
	case "FILLED", "DONE":
		return StatusFilled
	case "CANCELED", "CANCELLED":
		return StatusCanceled
	case "REJECTED", "FAILED":
		return StatusRejected
	case "EXPIRED":
		return StatusExpired
	}
	return StatusNew
}

// Order represents an order as last observed on the exchange.
type Order struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          Type            `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	ReduceOnly    bool            `json:"reduce_only"`
	TimeInForce   TimeInForce     `json:"time_in_force,omitempty"`
	Status        Status          `json:"status"`
	FilledQty     decimal.Decimal `json:"filled_qty"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderManager interface for persisting observed orders.
type OrderManager interface {
	SaveOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOpenOrders(ctx context.Context) ([]Order, error)
}
