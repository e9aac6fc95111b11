// Package db
package db

import (
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
)

// Storage is the interface for all persistent storage.
type Storage interface {
	pair.Store
	order.OrderManager
	journal.Journaler
	Close() error
}

var (
	_ Storage = (*Default)(nil)
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*Redis)(nil)
)
