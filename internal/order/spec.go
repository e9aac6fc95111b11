package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidArgument is wrapped by every input rejection that happens before a network
// call.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgument returns an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Spec is a new order to be submitted. Zero decimals mean "not set".
type Spec struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          Type
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	ReduceOnly    bool
	TimeInForce   TimeInForce
}

// Normalize upper-cases enum fields and fills the default time in force for resting
// order types.
func (s Spec) Normalize() Spec {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Side = Side(strings.ToUpper(string(s.Side)))
	s.Type = Type(strings.ToUpper(string(s.Type)))
	s.TimeInForce = TimeInForce(strings.ToUpper(string(s.TimeInForce)))
	if s.TimeInForce == "" && (s.Type == Limit || s.Type == TakeProfit) {
		s.TimeInForce = GTC
	}
	return s
}

// Validate checks the field combination allowed for the order type:
//
//	MARKET       quantity
//	LIMIT        quantity, price, [timeInForce]
//	TAKE_PROFIT  quantity, price, stopPrice, [timeInForce]
//	STOP         quantity, stopPrice
func (s Spec) Validate() error {
	if s.Symbol == "" {
		return InvalidArgument("symbol is required")
	}
	if !s.Side.Valid() {
		return InvalidArgument("side must be BUY or SELL, got %q", s.Side)
	}
	if !s.Quantity.IsPositive() {
		return InvalidArgument("quantity must be positive, got %s", s.Quantity)
	}
	if s.Price.IsNegative() || s.StopPrice.IsNegative() {
		return InvalidArgument("prices cannot be negative")
	}
	switch s.TimeInForce {
	case "", GTC, IOC, FOK:
	default:
		return InvalidArgument("unsupported time in force %q", s.TimeInForce)
	}

	switch s.Type {
	case Market:
		if !s.Price.IsZero() || !s.StopPrice.IsZero() {
			return InvalidArgument("market order takes no price or stop price")
		}
		if s.TimeInForce != "" {
			return InvalidArgument("market order takes no time in force")
		}
	case Limit:
		if !s.Price.IsPositive() {
			return InvalidArgument("limit order requires a positive price")
		}
		if !s.StopPrice.IsZero() {
			return InvalidArgument("limit order takes no stop price")
		}
	case TakeProfit:
		if !s.Price.IsPositive() || !s.StopPrice.IsPositive() {
			return InvalidArgument("take-profit order requires positive price and stop price")
		}
	case Stop:
		if !s.StopPrice.IsPositive() {
			return InvalidArgument("stop order requires a positive stop price")
		}
		if !s.Price.IsZero() {
			return InvalidArgument("stop order takes no price")
		}
		if s.TimeInForce != "" {
			return InvalidArgument("stop order takes no time in force")
		}
	default:
		return InvalidArgument("unsupported order type %q", s.Type)
	}
	return nil
}
