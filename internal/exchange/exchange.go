// Package exchange
package exchange

import (
	"context"

	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
)

// MarketData is the read-only part of an exchange.
type MarketData interface {
	// ListSymbols returns the set of tradable instrument symbols.
	ListSymbols(ctx context.Context) (map[string]bool, error)
	// LastPrice returns the price of the most recent trade.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Gateway is the interface for all supported exchanges. A single gateway is shared by
// every component of one process.
type Gateway interface {
	MarketData
	Name() string
	// Supports reports whether orders of type t can be submitted at all.
	Supports(t order.Type) bool
	SubmitOrder(ctx context.Context, spec order.Spec) (order.Order, error)
	GetOrder(ctx context.Context, symbol, orderID string) (order.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

var (
	_ Gateway = (*WallexGateway)(nil)
	_ Gateway = (*PaperGateway)(nil)
)
