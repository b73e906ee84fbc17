package worker

import (
	"context"
	"time"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/stream"
	"github.com/rs/zerolog"
)

// SnapshotSource computes the registered count of every course in the open period.
// A nil snapshot means no period is open.
type SnapshotSource interface {
	Snapshot(ctx context.Context, now time.Time) (*model.CapacitySnapshot, error)
}

// CapacityBroadcaster pushes one capacity snapshot per tick to every live subscriber.
type CapacityBroadcaster struct {
	registry    *stream.Registry
	source      SnapshotSource
	interval    time.Duration
	sendTimeout time.Duration
	log         zerolog.Logger
}

func NewCapacityBroadcaster(registry *stream.Registry, source SnapshotSource, interval time.Duration, log zerolog.Logger) *CapacityBroadcaster {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &CapacityBroadcaster{
		registry:    registry,
		source:      source,
		interval:    interval,
		sendTimeout: interval / 2,
		log:         logger.Component(log, "capacity_broadcaster"),
	}
}

// Start runs the tick loop until ctx is cancelled, then closes every subscriber.
// Call in a goroutine.
func (b *CapacityBroadcaster) Start(ctx context.Context) {
	b.log.Info().Dur("interval", b.interval).Msg("Broadcaster started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.registry.CloseAll()
			b.log.Info().Msg("Broadcaster stopped")
			return
		case now := <-ticker.C:
			b.Tick(ctx, now)
		}
	}
}

// Tick takes one snapshot and delivers it. Subscribers that fail delivery, or
// do not accept it within the send timeout, are evicted. It returns the number
// of subscribers that received the snapshot.
func (b *CapacityBroadcaster) Tick(ctx context.Context, now time.Time) int {
	if b.registry.Len() == 0 {
		return 0
	}

	snap, err := b.source.Snapshot(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			b.log.Error().Err(err).Msg("Snapshot failed")
		}
		return 0
	}
	if snap == nil {
		return 0
	}
	if err := snap.Encode(); err != nil {
		b.log.Error().Err(err).Msg("Snapshot encode failed")
		return 0
	}

	subs := b.registry.List()
	type outcome struct {
		sub stream.Subscriber
		err error
	}
	// Buffered so senders that finish after the deadline never block.
	results := make(chan outcome, len(subs))
	pending := make(map[string]stream.Subscriber, len(subs))
	for _, s := range subs {
		pending[s.ID()] = s
		go func(s stream.Subscriber) {
			results <- outcome{sub: s, err: s.Send(snap)}
		}(s)
	}

	deadline := time.NewTimer(b.sendTimeout)
	defer deadline.Stop()

	delivered := 0
	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.sub.ID())
			if r.err != nil {
				b.evict(r.sub, r.err)
				continue
			}
			delivered++
		case <-deadline.C:
			for id, s := range pending {
				b.evict(s, stream.ErrSendTimeout)
				delete(pending, id)
			}
		}
	}

	b.log.Debug().
		Int("subscribers", len(subs)).
		Int("delivered", delivered).
		Int("courses", len(snap.Counts)).
		Msg("Snapshot broadcast")
	return delivered
}

// evict detaches s. Closing it unblocks any write still in flight.
func (b *CapacityBroadcaster) evict(s stream.Subscriber, reason error) {
	if b.registry.Remove(s.ID()) {
		b.log.Warn().Err(reason).Str("subscriber_id", s.ID()).Msg("Evicted subscriber")
	}
}
