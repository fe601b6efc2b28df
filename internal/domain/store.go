package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// StateStore reads and writes the singleton marketplace state.
// Get takes an exclusive lock on the record for the rest of the transaction.
type StateStore interface {
	Get(ctx context.Context) (MarketplaceState, error)
	Init(ctx context.Context, st MarketplaceState) error
	Update(ctx context.Context, st MarketplaceState) error
}

// PropertyStore persists property records. Get locks the record exclusively
// for the rest of the transaction.
type PropertyStore interface {
	Create(ctx context.Context, p Property) error
	Get(ctx context.Context, id uint64) (Property, error)
	Update(ctx context.Context, p Property) error
	List(ctx context.Context, opts ListOpts) ([]Property, error)
	ListByOwner(ctx context.Context, owner ActorID, opts ListOpts) ([]Property, error)
}

// AuctionStore persists auction records. Get locks the record exclusively
// for the rest of the transaction.
type AuctionStore interface {
	Create(ctx context.Context, a Auction) error
	Get(ctx context.Context, id uint64) (Auction, error)
	Update(ctx context.Context, a Auction) error
	ListOpen(ctx context.Context, opts ListOpts) ([]Auction, error)
	// OpenByProperty returns the unsettled auction referencing the property,
	// or ErrNotFound when there is none. At most one can exist.
	OpenByProperty(ctx context.Context, propertyID uint64) (Auction, error)
	// ListEndedBefore returns settled auctions whose end time is strictly
	// before the cutoff, for archival.
	ListEndedBefore(ctx context.Context, before time.Time) ([]Auction, error)
}

// BidStore persists the append-only bid history.
type BidStore interface {
	Create(ctx context.Context, b Bid) error
	ListByAuction(ctx context.Context, auctionID uint64) ([]Bid, error)
	// ClearWinning marks every bid of the auction as no longer winning.
	// Called just before the new high bid is recorded.
	ClearWinning(ctx context.Context, auctionID uint64) error
}

// EscrowStore persists escrow records. Get locks the record exclusively for
// the rest of the transaction.
type EscrowStore interface {
	Create(ctx context.Context, e Escrow) error
	Get(ctx context.Context, id uint64) (Escrow, error)
	Update(ctx context.Context, e Escrow) error
	// ListCompletedBefore returns settled escrows created strictly before the
	// cutoff, for archival.
	ListCompletedBefore(ctx context.Context, before time.Time) ([]Escrow, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Tx exposes every store bound to one atomic unit of work. All reads see a
// consistent snapshot and all writes commit or roll back together.
type Tx interface {
	State() StateStore
	Properties() PropertyStore
	Auctions() AuctionStore
	Bids() BidStore
	Escrows() EscrowStore
	Ledger() Ledger
	Audit() AuditStore
}

// Store opens atomic units of work against the backing database. InTx begins
// a transaction, runs fn, and commits iff fn returns nil; any error rolls the
// whole unit back, leaving no partial state. View exposes the same stores
// outside a transaction for read-only access that needs no record locks.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	View() Tx
}
