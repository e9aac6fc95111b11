package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
)

type MemoryStorage struct {
	mu sync.RWMutex

	// Pairs by pair ID
	pairs map[string]pair.OrderPair

	// Orders by exchange order ID
	orders map[string]order.Order

	// Events (append-only)
	events []journal.Event
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		pairs:  make(map[string]pair.OrderPair),
		orders: make(map[string]order.Order),
		events: make([]journal.Event, 0, 256),
	}
}

func (m *MemoryStorage) Close() error { return nil }

// -------- Pair registry --------

func (m *MemoryStorage) SavePair(ctx context.Context, p pair.OrderPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[p.ID] = p
	return nil
}

func (m *MemoryStorage) GetPair(ctx context.Context, id string) (*pair.OrderPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.pairs[id]; ok {
		pp := p
		return &pp, nil
	}
	return nil, nil
}

func (m *MemoryStorage) GetPendingPairs(ctx context.Context) ([]pair.OrderPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []pair.OrderPair
	for _, p := range m.pairs {
		if !p.Resolution.Final() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -------- OrderStorage --------

func (m *MemoryStorage) SaveOrder(ctx context.Context, o order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MemoryStorage) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[orderID]; ok {
		oo := o
		return &oo, nil
	}
	return nil, nil
}

func (m *MemoryStorage) GetOpenOrders(ctx context.Context) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []order.Order
	for _, o := range m.orders {
		if !o.Status.IsTerminal() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -------- JournalStorage --------

func (m *MemoryStorage) LogEvent(ctx context.Context, event journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.Time = event.Time.UTC()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStorage) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]journal.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start = start.UTC()
	end = end.UTC()
	var out []journal.Event
	for _, e := range m.events {
		if e.Type == eventType && !e.Time.Before(start) && e.Time.Before(end) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
