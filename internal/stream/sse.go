package stream

import (
	"sync"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/google/uuid"
)

// SSESubscriber queues encoded snapshots for a server-sent events handler.
// Send never blocks: a full buffer is a delivery failure.
type SSESubscriber struct {
	id     string
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewSSESubscriber(buffer int) *SSESubscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &SSESubscriber{
		id:     "sse-" + uuid.NewString(),
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (s *SSESubscriber) ID() string { return s.id }

// Send queues the encoded counts as the data of one event.
func (s *SSESubscriber) Send(snap *model.CapacitySnapshot) error {
	payload, err := snap.EncodedCounts()
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.frames <- payload:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Frames yields encoded snapshots in order.
func (s *SSESubscriber) Frames() <-chan []byte { return s.frames }

// Done is closed once the subscriber is closed.
func (s *SSESubscriber) Done() <-chan struct{} { return s.done }

func (s *SSESubscriber) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
