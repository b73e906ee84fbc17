package stream

import (
	"sync"

	"github.com/dkhp/registration-backend/internal/model"
	ws "github.com/dkhp/registration-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSSubscriber writes snapshots straight to a WebSocket connection.
// Writes are serialized because gorilla connections allow one writer at a time.
type WSSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func NewWSSubscriber(conn *websocket.Conn) *WSSubscriber {
	return &WSSubscriber{
		id:   "ws-" + uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}
}

func (s *WSSubscriber) ID() string { return s.id }

func (s *WSSubscriber) Send(snap *model.CapacitySnapshot) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	counts, err := snap.EncodedCounts()
	if err != nil {
		return err
	}
	return s.Write(ws.CapacityEvent{
		Event:      ws.EventCapacity,
		SemesterID: snap.SemesterID,
		Counts:     counts,
		TakenAt:    snap.TakenAt,
	})
}

// Write sends any frame under the connection's write lock.
func (s *WSSubscriber) Write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

// Done is closed once the subscriber is closed.
func (s *WSSubscriber) Done() <-chan struct{} { return s.done }

func (s *WSSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
