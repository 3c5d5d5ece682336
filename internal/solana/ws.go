package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogSubscription, error)

	// Unsubscribe cancels a subscription created by SubscribeLogs.
	Unsubscribe(ctx context.Context, id uint64) error

	// Close closes the WebSocket connection and ends all subscriptions.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// LogSubscription is a live logs subscription. ID is local to the client
// and stays stable across reconnects. C is never closed; Done is closed
// once the subscription ends.
type LogSubscription struct {
	ID   uint64
	C    <-chan LogNotification
	done <-chan struct{}
}

// NewLogSubscription builds a subscription handle. Used by alternative
// WSClient implementations.
func NewLogSubscription(id uint64, c <-chan LogNotification, done <-chan struct{}) *LogSubscription {
	return &LogSubscription{ID: id, C: c, done: done}
}

// Done is closed when the subscription is cancelled or the client closes.
func (s *LogSubscription) Done() <-chan struct{} {
	return s.done
}
