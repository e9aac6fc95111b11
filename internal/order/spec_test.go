package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{
			name: "market ok",
			spec: Spec{Symbol: "BTCUSDT", Side: Buy, Type: Market, Quantity: d("0.001")},
		},
		{
			name:    "market with price",
			spec:    Spec{Symbol: "BTCUSDT", Side: Buy, Type: Market, Quantity: d("0.001"), Price: d("100")},
			wantErr: true,
		},
		{
			name: "limit ok",
			spec: Spec{Symbol: "BTCUSDT", Side: Sell, Type: Limit, Quantity: d("1"), Price: d("60000"), TimeInForce: GTC},
		},
		{
			name:    "limit without price",
			spec:    Spec{Symbol: "BTCUSDT", Side: Sell, Type: Limit, Quantity: d("1")},
			wantErr: true,
		},
		{
			name: "take profit ok",
			spec: Spec{Symbol: "BTCUSDT", Side: Sell, Type: TakeProfit, Quantity: d("1"), Price: d("65000"), StopPrice: d("65000"), ReduceOnly: true},
		},
		{
			name:    "take profit without stop price",
			spec:    Spec{Symbol: "BTCUSDT", Side: Sell, Type: TakeProfit, Quantity: d("1"), Price: d("65000")},
			wantErr: true,
		},
		{
			name: "stop ok",
			spec: Spec{Symbol: "BTCUSDT", Side: Sell, Type: Stop, Quantity: d("1"), StopPrice: d("58000"), ReduceOnly: true},
		},
		{
			name:    "stop with time in force",
			spec:    Spec{Symbol: "BTCUSDT", Side: Sell, Type: Stop, Quantity: d("1"), StopPrice: d("58000"), TimeInForce: GTC},
			wantErr: true,
		},
		{
			name:    "zero quantity",
			spec:    Spec{Symbol: "BTCUSDT", Side: Buy, Type: Market},
			wantErr: true,
		},
		{
			name:    "bad side",
			spec:    Spec{Symbol: "BTCUSDT", Side: "HOLD", Type: Market, Quantity: d("1")},
			wantErr: true,
		},
		{
			name:    "unknown type",
			spec:    Spec{Symbol: "BTCUSDT", Side: Buy, Type: "ICEBERG", Quantity: d("1")},
			wantErr: true,
		},
		{
			name:    "missing symbol",
			spec:    Spec{Side: Buy, Type: Market, Quantity: d("1")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSpecNormalize(t *testing.T) {
	s := Spec{Symbol: " btcusdt ", Side: "buy", Type: "limit", Quantity: d("1"), Price: d("1")}.Normalize()
	assert.Equal(t, "BTCUSDT", s.Symbol)
	assert.Equal(t, Buy, s.Side)
	assert.Equal(t, Limit, s.Type)
	assert.Equal(t, GTC, s.TimeInForce)

	m := Spec{Symbol: "x", Side: "sell", Type: "market"}.Normalize()
	assert.Equal(t, TimeInForce(""), m.TimeInForce)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusFilled, ParseStatus("filled"))
	assert.Equal(t, StatusCanceled, ParseStatus("CANCELLED"))
	assert.Equal(t, StatusPartiallyFilled, ParseStatus("PARTIALLY_FILLED"))
	assert.Equal(t, StatusNew, ParseStatus("something-else"))
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusPartiallyFilled.IsTerminal())
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}
