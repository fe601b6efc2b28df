package postgres

import (
	"context"
	"fmt"

	"github.com/propchain/marketd/internal/domain"
)

// BidStore implements domain.BidStore using PostgreSQL. Bids are append-only;
// the only mutation ever applied is clearing the winning flag.
type BidStore struct {
	q querier
}

// Create inserts an accepted bid.
func (s *BidStore) Create(ctx context.Context, b domain.Bid) error {
	const query = `
		INSERT INTO bids (auction_id, bidder, sequence, amount, placed_at, is_winning)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.q.Exec(ctx, query,
		b.AuctionID, b.Bidder, b.Sequence, b.Amount, b.Timestamp, b.IsWinning)
	if err != nil {
		return fmt.Errorf("postgres: create bid %d/%d: %w", b.AuctionID, b.Sequence, err)
	}
	return nil
}

// ListByAuction returns every bid of the auction in placement order.
func (s *BidStore) ListByAuction(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	rows, err := s.q.Query(ctx,
		`SELECT auction_id, bidder, sequence, amount, placed_at, is_winning
		 FROM bids WHERE auction_id = $1 ORDER BY sequence`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bids for auction %d: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(
			&b.AuctionID, &b.Bidder, &b.Sequence, &b.Amount, &b.Timestamp, &b.IsWinning,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bids rows: %w", err)
	}
	return bids, nil
}

// ClearWinning marks every bid of the auction as outbid.
func (s *BidStore) ClearWinning(ctx context.Context, auctionID uint64) error {
	_, err := s.q.Exec(ctx,
		`UPDATE bids SET is_winning = FALSE WHERE auction_id = $1 AND is_winning`,
		auctionID)
	if err != nil {
		return fmt.Errorf("postgres: clear winning bids for auction %d: %w", auctionID, err)
	}
	return nil
}
