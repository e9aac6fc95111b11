package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/simple-executor/internal/db/conf"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
	_ "github.com/lib/pq"
)

// Transaction context key
type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// executeWithTransaction executes a function with proper transaction management
// If a transaction exists in context, it uses that. Otherwise, it creates a new one.
func (p *Default) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}

	return nil
}

// queryWithTransaction executes a query using transaction from context if available
func (p *Default) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

type Default struct {
	db *sql.DB
}

func New(c conf.Config) (*Default, error) {
	if c.DB == nil {
		return nil, errors.New("postgres storage needs an open connection")
	}
	return &Default{db: c.DB}, nil
}

func (p *Default) GetDB() *sql.DB {
	return p.db
}

func (p *Default) Close() error {
	return p.db.Close()
}

// -------- Pair registry --------

const pairColumns = `id, symbol, parent_order_id, take_profit, stop_loss, resolution, cancel_error, created_at, updated_at`

func (p *Default) SavePair(ctx context.Context, op pair.OrderPair) error {
	tp, err := json.Marshal(op.TakeProfit)
	if err != nil {
		return fmt.Errorf("failed to encode take-profit of pair %s: %w", op.ID, err)
	}
	sl, err := json.Marshal(op.StopLoss)
	if err != nil {
		return fmt.Errorf("failed to encode stop-loss of pair %s: %w", op.ID, err)
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO order_pairs (`+pairColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET take_profit=EXCLUDED.take_profit, stop_loss=EXCLUDED.stop_loss,
				resolution=EXCLUDED.resolution, cancel_error=EXCLUDED.cancel_error, updated_at=EXCLUDED.updated_at`,
			op.ID, op.Symbol, op.ParentOrderID, tp, sl, string(op.Resolution), op.CancelError, op.CreatedAt, op.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save pair %s: %w", op.ID, err)
		}
		return nil
	})
}

func (p *Default) GetPair(ctx context.Context, id string) (*pair.OrderPair, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT `+pairColumns+` FROM order_pairs WHERE id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	op, err := scanPair(rows)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (p *Default) GetPendingPairs(ctx context.Context) ([]pair.OrderPair, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT `+pairColumns+` FROM order_pairs WHERE resolution IN ($1, $2) ORDER BY created_at ASC`,
		string(pair.Pending), string(pair.TimedOut))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending pairs: %w", err)
	}
	defer rows.Close()

	var pairs []pair.OrderPair
	for rows.Next() {
		op, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, op)
	}
	return pairs, rows.Err()
}

func scanPair(rows *sql.Rows) (pair.OrderPair, error) {
	var (
		op         pair.OrderPair
		tp, sl     []byte
		resolution string
	)
	if err := rows.Scan(&op.ID, &op.Symbol, &op.ParentOrderID, &tp, &sl, &resolution, &op.CancelError, &op.CreatedAt, &op.UpdatedAt); err != nil {
		return op, fmt.Errorf("failed to scan pair: %w", err)
	}
	if err := json.Unmarshal(tp, &op.TakeProfit); err != nil {
		return op, fmt.Errorf("failed to decode take-profit of pair %s: %w", op.ID, err)
	}
	if err := json.Unmarshal(sl, &op.StopLoss); err != nil {
		return op, fmt.Errorf("failed to decode stop-loss of pair %s: %w", op.ID, err)
	}
	op.Resolution = pair.Resolution(resolution)
	op.CreatedAt = op.CreatedAt.UTC()
	op.UpdatedAt = op.UpdatedAt.UTC()
	return op, nil
}

// -------- OrderStorage --------

const orderColumns = `order_id, client_order_id, symbol, side, type, quantity, price, stop_price, reduce_only,
	time_in_force, status, filled_qty, avg_price, created_at, updated_at`

func (p *Default) SaveOrder(ctx context.Context, o order.Order) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (order_id) DO UPDATE SET status=EXCLUDED.status, filled_qty=EXCLUDED.filled_qty,
				avg_price=EXCLUDED.avg_price, updated_at=EXCLUDED.updated_at`,
			o.ID, o.ClientOrderID, o.Symbol, string(o.Side), string(o.Type), o.Quantity, o.Price, o.StopPrice, o.ReduceOnly,
			string(o.TimeInForce), string(o.Status), o.FilledQty, o.AvgPrice, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save order %s: %w", o.ID, err)
		}
		return nil
	})
}

func (p *Default) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	o, err := scanOrder(rows)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (p *Default) GetOpenOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT `+orderColumns+` FROM orders WHERE status IN ($1, $2) ORDER BY created_at ASC`,
		string(order.StatusNew), string(order.StatusPartiallyFilled))
	if err != nil {
		return nil, fmt.Errorf("failed to query open orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(rows *sql.Rows) (order.Order, error) {
	var (
		o                      order.Order
		side, typ, tif, status string
	)
	err := rows.Scan(&o.ID, &o.ClientOrderID, &o.Symbol, &side, &typ, &o.Quantity, &o.Price, &o.StopPrice, &o.ReduceOnly,
		&tif, &status, &o.FilledQty, &o.AvgPrice, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Side = order.Side(side)
	o.Type = order.Type(typ)
	o.TimeInForce = order.TimeInForce(tif)
	o.Status = order.ParseStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

// -------- JournalStorage --------

func (p *Default) LogEvent(ctx context.Context, event journal.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO events (time, type, level, description, data) VALUES ($1,$2,$3,$4,$5)`,
			event.Time, event.Type, event.Level, event.Description, data)
		if err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
}

func (p *Default) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]journal.Event, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT time, type, level, description, data FROM events
		WHERE type=$1 AND time >= $2 AND time < $3 ORDER BY time ASC, id ASC`, eventType, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []journal.Event
	for rows.Next() {
		var e journal.Event
		var data []byte
		if err := rows.Scan(&e.Time, &e.Type, &e.Level, &e.Description, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event data: %w", err)
			}
		}
		e.Time = e.Time.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
