package coordinator

import (
	"context"
	"sync"
	"time"

	"solana-token-radar/internal/domain"
)

// NewCandidates carries the records accepted from one batch, in batch order.
type NewCandidates struct {
	BatchID   string
	Strategy  string
	Source    domain.Source
	Records   []*domain.CandidateRecord
	EmittedAt time.Time
}

// Subscription receives pipeline output. Both channels must be drained:
// the coordinator blocks on a full subscriber until it is closed or the
// coordinator stops.
type Subscription struct {
	Candidates <-chan NewCandidates
	Results    <-chan domain.DetectionSummary

	candidates chan NewCandidates
	results    chan domain.DetectionSummary
	done       chan struct{}
	once       sync.Once
	owner      *Coordinator
}

// Close detaches the subscription. The channels are never closed.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.owner.unsubscribe(s)
	})
}

// Done is closed once the subscription is detached.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe registers a consumer with the given channel buffer.
func (c *Coordinator) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	s := &Subscription{
		candidates: make(chan NewCandidates, buffer),
		results:    make(chan domain.DetectionSummary, buffer),
		done:       make(chan struct{}),
		owner:      c,
	}
	s.Candidates = s.candidates
	s.Results = s.results

	c.subsMu.Lock()
	c.subs = append(c.subs, s)
	c.subsMu.Unlock()
	return s
}

func (c *Coordinator) unsubscribe(s *Subscription) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) subscribers() []*Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	return append([]*Subscription(nil), c.subs...)
}

// publish delivers candidates (when non-empty) then the summary to each
// subscriber, preserving that order per subscriber.
func (c *Coordinator) publish(ctx context.Context, ev *NewCandidates, sum domain.DetectionSummary) {
	for _, s := range c.subscribers() {
		if ev != nil {
			select {
			case s.candidates <- *ev:
			case <-s.done:
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case s.results <- sum:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}
