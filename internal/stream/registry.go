// Package stream holds the live capacity subscribers and the registry the
// broadcaster fans out to.
package stream

import (
	"errors"
	"sync"

	"github.com/dkhp/registration-backend/internal/model"
)

var (
	// ErrClosed is returned when sending to a subscriber that has gone away.
	ErrClosed = errors.New("subscriber closed")
	// ErrSlowConsumer is returned when a subscriber has not drained its previous snapshots.
	ErrSlowConsumer = errors.New("subscriber buffer full")
	// ErrSendTimeout is the eviction reason for a subscriber that blocked a whole send window.
	ErrSendTimeout = errors.New("subscriber send timed out")
)

// Subscriber is one open push connection.
type Subscriber interface {
	ID() string
	Send(snap *model.CapacitySnapshot) error
	Close() error
}

// Registry is the set of live subscribers. It is safe for concurrent use by
// request handlers attaching and the broadcaster evicting.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Subscriber)}
}

// Add attaches a subscriber.
func (r *Registry) Add(s Subscriber) {
	r.mu.Lock()
	r.subs[s.ID()] = s
	r.mu.Unlock()
}

// Remove detaches and closes the subscriber with the given id. It reports
// whether the subscriber was still attached.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.subs[id]
	delete(r.subs, id)
	r.mu.Unlock()

	if ok {
		_ = s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// List returns the attached subscribers at this instant.
func (r *Registry) List() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

// CloseAll detaches and closes every subscriber.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]Subscriber)
	r.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
}
