package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticMarket struct {
	mu      sync.Mutex
	price   decimal.Decimal
	symbols map[string]bool
	err     error
}

func (m *staticMarket) ListSymbols(ctx context.Context) (map[string]bool, error) {
	return m.symbols, m.err
}

func (m *staticMarket) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price, m.err
}

func (m *staticMarket) set(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = decimal.RequireFromString(p)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPaper(price string) (*PaperGateway, *staticMarket) {
	m := &staticMarket{price: dec(price), symbols: map[string]bool{"BTCUSDT": true}}
	return NewPaperGateway(m, clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)), nil), m
}

func TestPaperMarketOrderFillsAtLastPrice(t *testing.T) {
	gw, _ := newPaper("60000")
	o, err := gw.SubmitOrder(context.Background(), order.Spec{
		Symbol: "btcusdt", Side: order.Buy, Type: order.Market, Quantity: dec("0.002"),
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusFilled, o.Status)
	assert.True(t, o.AvgPrice.Equal(dec("60000")))
	assert.True(t, o.FilledQty.Equal(dec("0.002")))
	assert.Equal(t, "BTCUSDT", o.Symbol)
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.ClientOrderID)
}

func TestPaperTakeProfitAndStopTriggers(t *testing.T) {
	ctx := context.Background()
	gw, m := newPaper("60000")

	tp, err := gw.SubmitOrder(ctx, order.Spec{
		Symbol: "BTCUSDT", Side: order.Sell, Type: order.TakeProfit, Quantity: dec("1"),
		Price: dec("65000"), StopPrice: dec("65000"), ReduceOnly: true,
	})
	require.NoError(t, err)
	sl, err := gw.SubmitOrder(ctx, order.Spec{
		Symbol: "BTCUSDT", Side: order.Sell, Type: order.Stop, Quantity: dec("1"),
		StopPrice: dec("58000"), ReduceOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, tp.Status)
	assert.Equal(t, order.StatusNew, sl.Status)

	m.set("64000")
	got, err := gw.GetOrder(ctx, "BTCUSDT", tp.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, got.Status)

	m.set("65500")
	got, err = gw.GetOrder(ctx, "BTCUSDT", tp.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFilled, got.Status)
	assert.True(t, got.AvgPrice.Equal(dec("65000")))

	got, err = gw.GetOrder(ctx, "BTCUSDT", sl.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, got.Status)

	m.set("57000")
	got, err = gw.GetOrder(ctx, "BTCUSDT", sl.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFilled, got.Status)
	assert.True(t, got.AvgPrice.Equal(dec("57000")))
}

func TestPaperRejectsImmediateTrigger(t *testing.T) {
	gw, _ := newPaper("57000")
	_, err := gw.SubmitOrder(context.Background(), order.Spec{
		Symbol: "BTCUSDT", Side: order.Sell, Type: order.Stop, Quantity: dec("1"), StopPrice: dec("58000"),
	})
	require.Error(t, err)
	assert.True(t, IsRemote(err))
	assert.ErrorIs(t, err, ErrWouldTrigger)
}

func TestPaperLimitOrders(t *testing.T) {
	ctx := context.Background()
	gw, m := newPaper("100")

	resting, err := gw.SubmitOrder(ctx, order.Spec{Symbol: "BTCUSDT", Side: order.Buy, Type: order.Limit, Quantity: dec("1"), Price: dec("90")})
	require.NoError(t, err)
	assert.Equal(t, order.StatusNew, resting.Status)
	assert.Equal(t, order.GTC, resting.TimeInForce)

	marketable, err := gw.SubmitOrder(ctx, order.Spec{Symbol: "BTCUSDT", Side: order.Buy, Type: order.Limit, Quantity: dec("1"), Price: dec("110")})
	require.NoError(t, err)
	assert.Equal(t, order.StatusFilled, marketable.Status)
	assert.True(t, marketable.AvgPrice.Equal(dec("110")))

	ioc, err := gw.SubmitOrder(ctx, order.Spec{Symbol: "BTCUSDT", Side: order.Sell, Type: order.Limit, Quantity: dec("1"), Price: dec("120"), TimeInForce: order.IOC})
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, ioc.Status)

	m.set("89")
	got, err := gw.GetOrder(ctx, "BTCUSDT", resting.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFilled, got.Status)
}

func TestPaperCancel(t *testing.T) {
	ctx := context.Background()
	gw, _ := newPaper("100")

	o, err := gw.SubmitOrder(ctx, order.Spec{Symbol: "BTCUSDT", Side: order.Sell, Type: order.Limit, Quantity: dec("1"), Price: dec("200")})
	require.NoError(t, err)

	require.NoError(t, gw.CancelOrder(ctx, "BTCUSDT", o.ID))
	got, err := gw.GetOrder(ctx, "BTCUSDT", o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, got.Status)

	err = gw.CancelOrder(ctx, "BTCUSDT", o.ID)
	assert.ErrorIs(t, err, ErrOrderClosed)

	err = gw.CancelOrder(ctx, "BTCUSDT", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var rerr *RemoteAPIError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "paper", rerr.Exchange)
	assert.Equal(t, "cancel_order", rerr.Op)
}

func TestPaperInvalidSpecNeverReachesMarket(t *testing.T) {
	gw, m := newPaper("100")
	m.err = errors.New("should not be called")

	_, err := gw.SubmitOrder(context.Background(), order.Spec{Symbol: "BTCUSDT", Side: order.Buy, Type: order.Limit, Quantity: dec("1")})
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}

func TestRemoteAPIErrorMessage(t *testing.T) {
	err := &RemoteAPIError{Exchange: "wallex", Op: "get_order", Symbol: "BTCUSDT", OrderID: "42", Err: errors.New("timeout")}
	assert.Equal(t, "wallex: get_order BTCUSDT order 42: timeout", err.Error())
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("btc-usdt"))
	assert.Equal(t, "ETHTMN", NormalizeSymbol(" ETH/TMN "))
}

func TestSupports(t *testing.T) {
	gw, _ := newPaper("100")
	assert.True(t, gw.Supports(order.Stop))
	assert.False(t, gw.Supports(order.Type("ICEBERG")))

	live := NewWallexGateway("key", nil)
	assert.True(t, live.Supports(order.TakeProfit))
	assert.False(t, live.Supports(order.Stop))
}

func TestWallexType(t *testing.T) {
	typ, err := wallexType(order.TakeProfit)
	require.NoError(t, err)
	assert.Equal(t, "LIMIT", typ)

	_, err = wallexType(order.Stop)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}
