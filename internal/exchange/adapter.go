// Package exchange adapter
package exchange

import (
	"strings"

	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	wallex "github.com/wallexchange/wallex-go"
)

// NormalizeSymbol turns "btc-usdt" or "BTC/USDT" into the exchange form "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}

// wallexType maps an order type onto what the wallex spot API accepts. A take-profit is a
// resting reduce-side limit at its price there; stops have no wallex equivalent.
func wallexType(t order.Type) (string, error) {
	switch t {
	case order.Market:
		return "MARKET", nil
	case order.Limit, order.TakeProfit:
		return "LIMIT", nil
	}
	return "", ErrUnsupportedType
}

// toDecimal safely converts a wallex number, nil and garbage map to zero.
func toDecimal(n *wallex.Number) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(string(*n))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func fromDecimal(d decimal.Decimal, places int32) wallex.Number {
	return wallex.Number(d.StringFixed(places))
}
