package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	LogBatchSize    = 100
	LogBatchTimeout = 2 * time.Second
	LogPollTimeout  = 1 * time.Second
	// LogRetryDelay is the pause after a failed persist before polling again.
	LogRetryDelay = 5 * time.Second
)

// LogStore persists audit entries.
type LogStore interface {
	InsertBatch(ctx context.Context, entries []model.RegistrationLog) error
}

// RegistrationLogWorker consumes persist_registration_log_queue and writes the
// entries to PostgreSQL in batches.
type RegistrationLogWorker struct {
	store      LogStore
	rdb        redis.Cmdable
	queue      string
	retryDelay time.Duration
	log        zerolog.Logger
}

func NewRegistrationLogWorker(store LogStore, rdb redis.Cmdable, log zerolog.Logger) *RegistrationLogWorker {
	return &RegistrationLogWorker{
		store:      store,
		rdb:        rdb,
		queue:      config.WorkerKey.PersistRegistrationLogQueue,
		retryDelay: LogRetryDelay,
		log:        logger.Component(log, "registration_log_worker"),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *RegistrationLogWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]model.RegistrationLog, 0, LogBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= LogBatchSize || time.Since(lastFlush) >= LogBatchTimeout) {
			ok := w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
			if !ok {
				select {
				case <-ctx.Done():
				case <-time.After(w.retryDelay):
				}
			}
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.flush(context.Background(), batch)
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, LogPollTimeout, w.queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var entry model.RegistrationLog
			if err := json.Unmarshal([]byte(item[1]), &entry); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, entry)
		}
	}
}

// flush writes the batch, pushing it back onto the queue when the write fails.
func (w *RegistrationLogWorker) flush(ctx context.Context, batch []model.RegistrationLog) bool {
	if len(batch) == 0 {
		return true
	}
	if err := w.store.InsertBatch(ctx, batch); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Persist error, requeueing")
		w.requeue(ctx, batch)
		return false
	}
	return true
}

func (w *RegistrationLogWorker) requeue(ctx context.Context, batch []model.RegistrationLog) {
	values := make([]interface{}, 0, len(batch))
	for _, e := range batch {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		values = append(values, raw)
	}
	if len(values) == 0 {
		return
	}
	if err := w.rdb.RPush(ctx, w.queue, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(values)).Msg("Requeue failed, entries lost")
	}
}

// drain persists whatever is left in the queue before shutdown.
func (w *RegistrationLogWorker) drain(ctx context.Context) {
	drained := 0
	for {
		items, err := w.rdb.LPopCount(ctx, w.queue, LogBatchSize).Result()
		if err != nil || len(items) == 0 {
			break
		}

		batch := make([]model.RegistrationLog, 0, len(items))
		for _, raw := range items {
			var entry model.RegistrationLog
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				w.log.Error().Err(err).Msg("Drain unmarshal error")
				continue
			}
			batch = append(batch, entry)
		}
		if !w.flush(ctx, batch) {
			break
		}
		drained += len(batch)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
