package domain

import (
	"context"
	"io"
	"time"
)

// PropertyCache is a read-through cache over property records.
type PropertyCache interface {
	Set(ctx context.Context, p Property) error
	// Get returns ErrNotFound on a cache miss.
	Get(ctx context.Context, id uint64) (Property, error)
	Invalidate(ctx context.Context, id uint64) error
}

// LockManager provides exclusive, TTL-bounded locks on entity keys so that
// operations touching the same record are serialized across instances.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// key is already locked by another holder.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter limits how often a keyed action may occur within a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is one durable message read back from an event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus carries marketplace events: ephemeral fan-out via Publish and
// Subscribe, durable ordered delivery via the stream methods.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver exports settled records from the database to cold storage.
type Archiver interface {
	ArchiveAuctions(ctx context.Context, before time.Time) (int64, error)
	ArchiveEscrows(ctx context.Context, before time.Time) (int64, error)
}
