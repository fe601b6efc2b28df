package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propchain/marketd/internal/domain"
)

// querier is the query surface shared by pgxpool.Pool and pgx.Tx, so the same
// store code serves both transactional and standalone reads.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx begins a transaction, runs fn against it, and commits only when fn
// returns nil. Any error rolls back every write made inside fn.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(&storeTx{q: pgTx, lock: " FOR UPDATE"}); err != nil {
		_ = pgTx.Rollback(ctx)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// View exposes the read-only stores outside a transaction, for list and get
// endpoints. Reads through a View take no row locks.
func (s *Store) View() domain.Tx {
	return &storeTx{q: s.pool}
}

// storeTx binds the stores to one query surface. lock is appended to
// single-record reads; it is " FOR UPDATE" inside a transaction and empty on
// the View path.
type storeTx struct {
	q    querier
	lock string
}

func (t *storeTx) State() domain.StateStore       { return &StateStore{q: t.q, lock: t.lock} }
func (t *storeTx) Properties() domain.PropertyStore { return &PropertyStore{q: t.q, lock: t.lock} }
func (t *storeTx) Auctions() domain.AuctionStore  { return &AuctionStore{q: t.q, lock: t.lock} }
func (t *storeTx) Bids() domain.BidStore          { return &BidStore{q: t.q} }
func (t *storeTx) Escrows() domain.EscrowStore    { return &EscrowStore{q: t.q, lock: t.lock} }
func (t *storeTx) Ledger() domain.Ledger          { return &LedgerStore{q: t.q} }
func (t *storeTx) Audit() domain.AuditStore       { return &AuditStore{q: t.q} }
