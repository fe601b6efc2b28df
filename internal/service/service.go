// Package service implements the marketplace engine: every operation loads
// the entities it touches inside one transaction, validates all preconditions
// before mutating anything, and settles value and ownership together.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// lockTTL bounds how long an entity lock may outlive a crashed holder.
const lockTTL = 10 * time.Second

// Signal bus channels. Stream names mirror the channels with a "stream:"
// prefix for durable readers.
const (
	ChannelProperties = "properties"
	ChannelAuctions   = "auctions"
	ChannelBids       = "bids"
	ChannelEscrows    = "escrows"
)

// Event is the wire shape of every marketplace event on the signal bus.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// publishEvent fans an event out on the bus and appends it to the channel's
// durable stream. Event delivery is best effort: the state change has already
// committed, so failures are logged and swallowed.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel, eventType string, at time.Time, data any) {
	if bus == nil {
		return
	}

	payload, err := json.Marshal(Event{Type: eventType, At: at, Data: data})
	if err != nil {
		logger.WarnContext(ctx, "event marshal failed",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, "stream:"+channel, payload); err != nil {
		logger.WarnContext(ctx, "event stream append failed",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// withLock acquires the entity lock, runs fn, and releases. A held lock means
// another instance is mutating the same record; the caller retries.
func withLock(ctx context.Context, locks domain.LockManager, key string, fn func() error) error {
	if locks == nil {
		return fn()
	}
	unlock, err := locks.Acquire(ctx, key, lockTTL)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
