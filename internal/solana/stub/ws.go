package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-token-radar/internal/solana"
)

// WSClient implements solana.WSClient for testing. Notifications are
// injected with Publish.
type WSClient struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*stubSub
	closed bool

	unsubscribed []uint64

	// SubscribeErr fails every SubscribeLogs call when set.
	SubscribeErr error
	// UnsubscribeErr fails Unsubscribe for the listed mentions.
	UnsubscribeErr map[string]error
}

type stubSub struct {
	filter solana.LogsFilter
	ch     chan solana.LogNotification
	done   chan struct{}
}

// NewWSClient creates a stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{
		subs:           make(map[uint64]*stubSub),
		UnsubscribeErr: make(map[string]error),
	}
}

// SubscribeLogs registers a subscription.
func (c *WSClient) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (*solana.LogSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, solana.ErrClientClosed
	}
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}

	c.nextID++
	sub := &stubSub{
		filter: filter,
		ch:     make(chan solana.LogNotification, 64),
		done:   make(chan struct{}),
	}
	c.subs[c.nextID] = sub
	return solana.NewLogSubscription(c.nextID, sub.ch, sub.done), nil
}

// Unsubscribe ends a subscription.
func (c *WSClient) Unsubscribe(_ context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subs[id]
	if !ok {
		return fmt.Errorf("unknown subscription %d", id)
	}
	delete(c.subs, id)
	close(sub.done)
	c.unsubscribed = append(c.unsubscribed, id)

	for _, m := range sub.filter.Mentions {
		if err, ok := c.UnsubscribeErr[m]; ok {
			return err
		}
	}
	return nil
}

// Close ends all subscriptions.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, sub := range c.subs {
		close(sub.done)
		delete(c.subs, id)
	}
	return nil
}

// Publish delivers n to every live subscription that mentions program.
// It returns how many subscriptions received it.
func (c *WSClient) Publish(program string, n solana.LogNotification) int {
	c.mu.Lock()
	var targets []*stubSub
	for _, sub := range c.subs {
		for _, m := range sub.filter.Mentions {
			if m == program {
				targets = append(targets, sub)
				break
			}
		}
	}
	c.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- n:
		case <-sub.done:
		}
	}
	return len(targets)
}

// Unsubscribed lists IDs in the order they were cancelled.
func (c *WSClient) Unsubscribed() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.unsubscribed...)
}

// Active returns the number of live subscriptions.
func (c *WSClient) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// ErrUnavailable is a convenience error for tests simulating a dead node.
var ErrUnavailable = errors.New("node unavailable")

var _ solana.WSClient = (*WSClient)(nil)
