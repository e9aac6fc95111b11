// Package validate checks user supplied strategy parameters before any order is sent.
package validate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/amirphl/simple-executor/internal/exchange"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
)

type SymbolLister interface {
	ListSymbols(ctx context.Context) (map[string]bool, error)
}

// Symbol looks the symbol up in the exchange instrument list. Lookup failures are
// returned to the caller.
func Symbol(ctx context.Context, lister SymbolLister, symbol string) (bool, error) {
	symbols, err := lister.ListSymbols(ctx)
	if err != nil {
		return false, fmt.Errorf("symbol lookup: %w", err)
	}
	return symbols[exchange.NormalizeSymbol(symbol)], nil
}

// RequireSymbol is Symbol with an unknown symbol turned into ErrInvalidArgument.
func RequireSymbol(ctx context.Context, lister SymbolLister, symbol string) error {
	ok, err := Symbol(ctx, lister, symbol)
	if err != nil {
		return err
	}
	if !ok {
		return order.InvalidArgument("symbol %s not found on exchange", symbol)
	}
	return nil
}

func PositiveNumber(name, value string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, order.InvalidArgument("%s invalid: %q is not a number", name, value)
	}
	if !v.IsPositive() {
		return decimal.Zero, order.InvalidArgument("%s must be positive, got %s", name, v)
	}
	return v, nil
}

func PositiveInt(name, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, order.InvalidArgument("%s invalid: %q is not an integer", name, value)
	}
	if v < 1 {
		return 0, order.InvalidArgument("%s must be >= 1, got %d", name, v)
	}
	return v, nil
}

func Side(value string) (order.Side, error) {
	s := order.Side(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", order.InvalidArgument("SIDE must be BUY or SELL, got %q", value)
	}
	return s, nil
}
