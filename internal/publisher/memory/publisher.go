// Package memory implements an in-process event publisher for local
// development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// Publisher records published events in order.
type Publisher struct {
	mu     sync.Mutex
	events []clone.Event
}

// NewPublisher constructs an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish appends the event to the in-memory log.
func (p *Publisher) Publish(_ context.Context, event clone.Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *Publisher) Events() []clone.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]clone.Event, len(p.events))
	copy(out, p.events)
	return out
}
