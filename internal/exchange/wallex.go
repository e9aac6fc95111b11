// Package exchange
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	wallex "github.com/wallexchange/wallex-go"
	"go.uber.org/zap"
)

// Wallex accepts eight decimal places for both price and quantity.
const wallexPlaces = 8

type WallexGateway struct {
	client *wallex.Client
	rec    *journal.Recorder
}

func NewWallexGateway(apiKey string, rec *journal.Recorder) *WallexGateway {
	if rec == nil {
		rec = journal.Nop()
	}
	return &WallexGateway{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		rec:    rec,
	}
}

func (w *WallexGateway) Name() string {
	return "wallex"
}

func (w *WallexGateway) Supports(t order.Type) bool {
	_, err := wallexType(t)
	return err == nil
}

func (w *WallexGateway) remote(op, symbol, orderID string, err error) error {
	return &RemoteAPIError{Exchange: w.Name(), Op: op, Symbol: symbol, OrderID: orderID, Err: err}
}

func (w *WallexGateway) ListSymbols(ctx context.Context) (map[string]bool, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	default:
		markets, err := w.client.Markets()
		if err != nil {
			return nil, w.remote("list_symbols", "", "", err)
		}
		symbols := make(map[string]bool, len(markets))
		for _, m := range markets {
			symbols[NormalizeSymbol(m.Symbol)] = true
		}
		return symbols, nil
	}
}

func (w *WallexGateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()

	default:
		trades, err := w.client.MarketTrades(NormalizeSymbol(symbol))
		if err != nil {
			return decimal.Zero, w.remote("last_price", symbol, "", err)
		}
		if len(trades) == 0 {
			return decimal.Zero, w.remote("last_price", symbol, "", ErrNoTrades)
		}
		return toDecimal(&trades[0].Price), nil
	}
}

func (w *WallexGateway) SubmitOrder(ctx context.Context, spec order.Spec) (order.Order, error) {
	select {
	case <-ctx.Done():
		return order.Order{}, ctx.Err()

	default:
		spec = spec.Normalize()
		if err := spec.Validate(); err != nil {
			return order.Order{}, err
		}
		typ, err := wallexType(spec.Type)
		if err != nil {
			return order.Order{}, fmt.Errorf("%s order on %s: %w", spec.Type, w.Name(), err)
		}
		if spec.ReduceOnly {
			// Spot balances cannot go short, so every sell of a held asset already reduces.
			w.rec.Debug(ctx, "order", "wallex_reduce_only_implicit", zap.String("symbol", spec.Symbol))
		}

		params := &wallex.OrderParams{
			Symbol:   NormalizeSymbol(spec.Symbol),
			Type:     typ,
			Side:     string(spec.Side),
			Price:    fromDecimal(spec.Price, wallexPlaces),
			Quantity: fromDecimal(spec.Quantity, wallexPlaces),
		}
		resp, err := w.client.PlaceOrder(params)
		if err != nil {
			return order.Order{}, w.remote("submit_order", spec.Symbol, "", err)
		}

		return order.Order{
			ID:            resp.ClientOrderID,
			ClientOrderID: spec.ClientOrderID,
			Symbol:        spec.Symbol,
			Side:          spec.Side,
			Type:          spec.Type,
			Quantity:      spec.Quantity,
			Price:         spec.Price,
			StopPrice:     spec.StopPrice,
			ReduceOnly:    spec.ReduceOnly,
			TimeInForce:   spec.TimeInForce,
			Status:        order.ParseStatus(resp.Status),
			FilledQty:     toDecimal(resp.ExecutedQty),
			AvgPrice:      toDecimal(resp.ExecutedPrice),
			CreatedAt:     resp.CreatedAt.UTC(),
			UpdatedAt:     resp.CreatedAt.UTC(),
		}, nil
	}
}

func (w *WallexGateway) GetOrder(ctx context.Context, symbol, orderID string) (order.Order, error) {
	select {
	case <-ctx.Done():
		return order.Order{}, ctx.Err()

	default:
		resp, err := w.client.Order(orderID)
		if err != nil {
			return order.Order{}, w.remote("get_order", symbol, orderID, err)
		}

		return order.Order{
			ID:        resp.ClientOrderID,
			Symbol:    strings.ToUpper(symbol),
			Side:      order.Side(strings.ToUpper(resp.Side)),
			Type:      order.Type(strings.ToUpper(resp.Type)),
			Quantity:  toDecimal(&resp.OrigQty),
			Price:     toDecimal(&resp.Price),
			Status:    order.ParseStatus(resp.Status),
			FilledQty: toDecimal(resp.ExecutedQty),
			AvgPrice:  toDecimal(resp.ExecutedPrice),
			CreatedAt: resp.CreatedAt.UTC(),
			UpdatedAt: time.Now().UTC(),
		}, nil
	}
}

func (w *WallexGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()

	default:
		if err := w.client.CancelOrder(orderID); err != nil {
			return w.remote("cancel_order", symbol, orderID, err)
		}
		return nil
	}
}
