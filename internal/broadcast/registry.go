// Package broadcast tracks live subscribers and fans samples out to them
// without ever blocking on a slow reader.
package broadcast

import (
	"sync"

	"sysscope/internal/models"
	"sysscope/internal/utils"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 16

// Subscriber is one attached consumer. Its channel is closed once it has been
// detached, either explicitly or for falling behind.
type Subscriber struct {
	id uuid.UUID
	ch chan models.Sample
}

// ID identifies the subscriber in logs.
func (s *Subscriber) ID() string {
	return s.id.String()
}

// C delivers samples broadcast while the subscriber is attached.
func (s *Subscriber) C() <-chan models.Sample {
	return s.ch
}

// Observer receives registry events. Implemented by the metrics layer.
type Observer interface {
	SubscriberAttached()
	SubscriberDetached(dropped bool)
}

// Registry is the live subscriber set. Attach, Detach and Broadcast may be
// called from any goroutine.
type Registry struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	buffer   int
	closed   bool
	logger   *utils.Logger
	observer Observer
}

// NewRegistry creates a registry whose subscribers buffer up to buffer samples.
func NewRegistry(buffer int, logger *utils.Logger, observer Observer) *Registry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry{
		subs:     make(map[*Subscriber]struct{}),
		buffer:   buffer,
		logger:   logger,
		observer: observer,
	}
}

// Attach registers a new subscriber. It only sees samples broadcast after this
// call returns. After Close the subscriber comes back already detached.
func (r *Registry) Attach() *Subscriber {
	sub := &Subscriber{
		id: uuid.New(),
		ch: make(chan models.Sample, r.buffer),
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(sub.ch)
		r.logf("Subscriber %s rejected: registry closed", sub.ID())
		return sub
	}
	r.subs[sub] = struct{}{}
	count := len(r.subs)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.SubscriberAttached()
	}
	r.logf("Subscriber %s attached (%d active)", sub.ID(), count)
	return sub
}

// Detach removes sub and closes its channel. Detaching twice is a no-op.
func (r *Registry) Detach(sub *Subscriber) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	removed := r.removeLocked(sub)
	count := len(r.subs)
	r.mu.Unlock()

	if !removed {
		return
	}
	if r.observer != nil {
		r.observer.SubscriberDetached(false)
	}
	r.logf("Subscriber %s detached (%d active)", sub.ID(), count)
}

// Broadcast queues sample on every attached subscriber and returns how many
// accepted it. A subscriber whose buffer is full is detached instead of waited
// on. The whole fan-out happens under one lock, so every subscriber has this
// sample queued before any later broadcast begins.
func (r *Registry) Broadcast(sample models.Sample) int {
	var dropped []*Subscriber

	r.mu.Lock()
	delivered := 0
	for sub := range r.subs {
		select {
		case sub.ch <- sample:
			delivered++
		default:
			r.removeLocked(sub)
			dropped = append(dropped, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range dropped {
		if r.observer != nil {
			r.observer.SubscriberDetached(true)
		}
		r.logf("Subscriber %s dropped: buffer of %d full", sub.ID(), r.buffer)
	}
	return delivered
}

// Len returns the number of attached subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Close detaches every subscriber and refuses later attaches.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	subs := make([]*Subscriber, 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		r.Detach(sub)
	}
}

func (r *Registry) removeLocked(sub *Subscriber) bool {
	if _, ok := r.subs[sub]; !ok {
		return false
	}
	delete(r.subs, sub)
	close(sub.ch)
	return true
}

func (r *Registry) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
