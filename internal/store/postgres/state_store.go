package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/propchain/marketd/internal/domain"
)

// StateStore implements domain.StateStore using PostgreSQL. The state is a
// single row pinned to id 1.
type StateStore struct {
	q    querier
	lock string
}

// Get reads the singleton state row. Inside a transaction it locks the row,
// so concurrent id assignments serialize on it.
func (s *StateStore) Get(ctx context.Context) (domain.MarketplaceState, error) {
	query := `
		SELECT initialized, property_count, auction_count, escrow_count,
		       fee_bps, treasury, admin
		FROM marketplace_state WHERE id = 1` + s.lock

	var st domain.MarketplaceState
	err := s.q.QueryRow(ctx, query).Scan(
		&st.Initialized, &st.PropertyCount, &st.AuctionCount, &st.EscrowCount,
		&st.FeeBps, &st.Treasury, &st.Admin,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.MarketplaceState{}, domain.ErrNotFound
		}
		return domain.MarketplaceState{}, fmt.Errorf("postgres: get state: %w", err)
	}
	return st, nil
}

// Init creates the singleton state row. Fails with ErrAlreadyInitialized when
// the row already exists.
func (s *StateStore) Init(ctx context.Context, st domain.MarketplaceState) error {
	const query = `
		INSERT INTO marketplace_state (
			id, initialized, property_count, auction_count, escrow_count,
			fee_bps, treasury, admin
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.q.Exec(ctx, query,
		st.Initialized, st.PropertyCount, st.AuctionCount, st.EscrowCount,
		st.FeeBps, st.Treasury, st.Admin,
	)
	if err != nil {
		return fmt.Errorf("postgres: init state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

// Update writes the singleton state row back.
func (s *StateStore) Update(ctx context.Context, st domain.MarketplaceState) error {
	const query = `
		UPDATE marketplace_state SET
			initialized    = $1,
			property_count = $2,
			auction_count  = $3,
			escrow_count   = $4,
			fee_bps        = $5,
			treasury       = $6,
			admin          = $7
		WHERE id = 1`

	tag, err := s.q.Exec(ctx, query,
		st.Initialized, st.PropertyCount, st.AuctionCount, st.EscrowCount,
		st.FeeBps, st.Treasury, st.Admin,
	)
	if err != nil {
		return fmt.Errorf("postgres: update state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
