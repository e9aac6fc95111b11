package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/simple-executor/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listerFunc func(ctx context.Context) (map[string]bool, error)

func (f listerFunc) ListSymbols(ctx context.Context) (map[string]bool, error) { return f(ctx) }

func TestSymbol(t *testing.T) {
	lister := listerFunc(func(ctx context.Context) (map[string]bool, error) {
		return map[string]bool{"BTCUSDT": true}, nil
	})

	ok, err := Symbol(context.Background(), lister, "btc-usdt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Symbol(context.Background(), lister, "DOGEUSDT")
	require.NoError(t, err)
	assert.False(t, ok)

	err = RequireSymbol(context.Background(), lister, "DOGEUSDT")
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}

func TestSymbolLookupFailurePropagates(t *testing.T) {
	boom := errors.New("exchange info unavailable")
	lister := listerFunc(func(ctx context.Context) (map[string]bool, error) { return nil, boom })

	_, err := Symbol(context.Background(), lister, "BTCUSDT")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, order.ErrInvalidArgument)
}

func TestPositiveNumber(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "0.001", want: "0.001"},
		{value: " 60000 ", want: "60000"},
		{value: "0", wantErr: true},
		{value: "-1", wantErr: true},
		{value: "abc", wantErr: true},
		{value: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v, err := PositiveNumber("quantity", tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, order.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestPositiveInt(t *testing.T) {
	v, err := PositiveInt("slices", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = PositiveInt("slices", "0")
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
	_, err = PositiveInt("slices", "1.5")
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}

func TestSide(t *testing.T) {
	s, err := Side("buy")
	require.NoError(t, err)
	assert.Equal(t, order.Buy, s)

	_, err = Side("long")
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}
