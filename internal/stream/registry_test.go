package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
	ws "github.com/dkhp/registration-backend/internal/websocket"
	"github.com/gorilla/websocket"
)

func snapshot(counts map[int]int) *model.CapacitySnapshot {
	return &model.CapacitySnapshot{SemesterID: 1, Counts: counts, TakenAt: time.Now()}
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	a, b := NewSSESubscriber(1), NewSSESubscriber(1)
	r.Add(a)
	r.Add(b)
	if r.Len() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", r.Len())
	}

	if !r.Remove(a.ID()) {
		t.Error("expected first removal to report true")
	}
	if r.Remove(a.ID()) {
		t.Error("expected second removal to report false")
	}
	select {
	case <-a.Done():
	default:
		t.Error("removed subscriber was not closed")
	}

	r.CloseAll()
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
	select {
	case <-b.Done():
	default:
		t.Error("CloseAll left a subscriber open")
	}
}

func TestRegistry_ConcurrentAttach(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSSESubscriber(1)
			r.Add(s)
			_ = r.List()
			if i%2 == 0 {
				r.Remove(s.ID())
			}
		}()
	}
	wg.Wait()
	if r.Len() != 25 {
		t.Errorf("expected 25 subscribers, got %d", r.Len())
	}
}

func TestSSESubscriber_Send(t *testing.T) {
	s := NewSSESubscriber(1)

	if err := s.Send(snapshot(map[int]int{7: 3})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(snapshot(map[int]int{7: 4})); !errors.Is(err, ErrSlowConsumer) {
		t.Errorf("expected ErrSlowConsumer on full buffer, got %v", err)
	}

	frame := <-s.Frames()
	if string(frame) != `{"7":3}` {
		t.Errorf("unexpected frame %s", frame)
	}

	_ = s.Close()
	_ = s.Close()
	if err := s.Send(snapshot(map[int]int{})); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestWSSubscriber_Send(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subs := make(chan *WSSubscriber, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		subs <- NewWSSubscriber(conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	sub := <-subs
	if err := sub.Send(snapshot(map[int]int{1: 10, 2: 0})); err != nil {
		t.Fatalf("Send: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev ws.CapacityEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var counts map[int]int
	if err := json.Unmarshal(ev.Counts, &counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if ev.Event != ws.EventCapacity || counts[1] != 10 || len(counts) != 2 {
		t.Errorf("unexpected event %+v", ev)
	}

	_ = sub.Close()
	if err := sub.Send(snapshot(nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}
