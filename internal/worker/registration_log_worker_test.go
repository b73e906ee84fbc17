package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeLogStore struct {
	err     error
	batches [][]model.RegistrationLog
}

func (f *fakeLogStore) InsertBatch(_ context.Context, entries []model.RegistrationLog) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]model.RegistrationLog(nil), entries...))
	return nil
}

func offlineRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRegistrationLogWorker_Flush(t *testing.T) {
	rdb := offlineRedis()
	defer rdb.Close()

	entries := []model.RegistrationLog{
		{StudentID: 1, CourseCode: "IT001.O11", Action: model.RegistrationActionEnroll, Accepted: true, Status: "Enroll successfully"},
		{StudentID: 1, CourseCode: "IT002.O11", Action: model.RegistrationActionEnroll, Status: "The course IT002.O11 is full"},
	}

	store := &fakeLogStore{}
	w := NewRegistrationLogWorker(store, rdb, zerolog.Nop())
	if !w.flush(context.Background(), entries) {
		t.Fatal("expected flush to succeed")
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 2 {
		t.Fatalf("unexpected batches %+v", store.batches)
	}
	if !w.flush(context.Background(), nil) {
		t.Error("empty flush should succeed")
	}
	if len(store.batches) != 1 {
		t.Error("empty flush should not hit the store")
	}

	failing := NewRegistrationLogWorker(&fakeLogStore{err: errors.New("db down")}, rdb, zerolog.Nop())
	if failing.flush(context.Background(), entries) {
		t.Error("expected flush to report failure")
	}
}

// memQueue is a Redis list backed by a slice. Only the list commands the
// worker uses are implemented.
type memQueue struct {
	redis.Cmdable

	mu    sync.Mutex
	items []string
}

func (q *memQueue) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal([]string{keys[0], q.items[0]})
	q.items = q.items[1:]
	return cmd
}

func (q *memQueue) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range values {
		switch v := v.(type) {
		case []byte:
			q.items = append(q.items, string(v))
		case string:
			q.items = append(q.items, v)
		}
	}
	cmd.SetVal(int64(len(q.items)))
	return cmd
}

func (q *memQueue) LPopCount(ctx context.Context, key string, count int) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	n := min(count, len(q.items))
	cmd.SetVal(append([]string(nil), q.items[:n]...))
	q.items = q.items[n:]
	return cmd
}

func (q *memQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type countingLogStore struct {
	calls atomic.Int32
}

func (c *countingLogStore) InsertBatch(context.Context, []model.RegistrationLog) error {
	c.calls.Add(1)
	return errors.New("db down")
}

func TestRegistrationLogWorker_BacksOffWhenStoreFails(t *testing.T) {
	q := &memQueue{}
	for i := 0; i < 150; i++ {
		raw, _ := json.Marshal(model.RegistrationLog{StudentID: i + 1, CourseCode: "IT001.O11", Action: model.RegistrationActionEnroll})
		q.items = append(q.items, string(raw))
	}

	store := &countingLogStore{}
	w := NewRegistrationLogWorker(store, q, zerolog.Nop())
	w.retryDelay = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}

	// Roughly one attempt per retry delay, plus the shutdown flush and drain.
	if calls := store.calls.Load(); calls > 10 {
		t.Errorf("InsertBatch called %d times in 500ms, expected backoff", calls)
	}
	if q.Len() != 150 {
		t.Errorf("expected all 150 entries requeued, queue holds %d", q.Len())
	}
}
