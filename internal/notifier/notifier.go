// Package notifier
package notifier

import "context"

// Notifier interface for sending notifications (e.g., Telegram).
type Notifier interface {
	Send(ctx context.Context, msg string) error
}

// Nop drops every message. Used when no chat is configured.
type Nop struct{}

func (Nop) Send(ctx context.Context, msg string) error { return nil }
