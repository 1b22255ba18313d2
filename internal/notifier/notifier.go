// Package notifier delivers completion messages for written chart artifacts.
package notifier

import "context"

// Notification describes one finished artifact for the delivery channel.
// ChatID and SubscriberList are forwarded as-is when present; the telegram
// service owns the routing decision.
type Notification struct {
	Text           string
	ImagePath      string
	ChatID         *int64
	SubscriberList string
}

// Notifier hands a notification to the external delivery channel. Failures
// are the caller's to log; nothing here retries or rolls back the artifact.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// Noop discards notifications. Used when the queue is unreachable and in
// tests.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Notify(context.Context, *Notification) error { return nil }
