package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/propchain/marketd/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL.
type AuctionStore struct {
	q    querier
	lock string
}

const auctionCols = `id, property_id, seller, starting_price, reserve_price,
	current_bid, highest_bidder, bid_count, start_time, end_time, ended, winner`

func scanAuction(row pgx.Row) (domain.Auction, error) {
	var a domain.Auction
	var highestBidder, winner *string
	err := row.Scan(
		&a.ID, &a.PropertyID, &a.Seller, &a.StartingPrice, &a.ReservePrice,
		&a.CurrentBid, &highestBidder, &a.BidCount, &a.StartTime, &a.EndTime,
		&a.Ended, &winner,
	)
	if err != nil {
		return domain.Auction{}, err
	}
	if highestBidder != nil {
		id := domain.ActorID(*highestBidder)
		a.HighestBidder = &id
	}
	if winner != nil {
		id := domain.ActorID(*winner)
		a.Winner = &id
	}
	return a, nil
}

// Create inserts a new auction record.
func (s *AuctionStore) Create(ctx context.Context, a domain.Auction) error {
	const query = `
		INSERT INTO auctions (
			id, property_id, seller, starting_price, reserve_price,
			current_bid, highest_bidder, bid_count, start_time, end_time,
			ended, winner
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)`

	_, err := s.q.Exec(ctx, query,
		a.ID, a.PropertyID, a.Seller, a.StartingPrice, a.ReservePrice,
		a.CurrentBid, a.HighestBidder, a.BidCount, a.StartTime, a.EndTime,
		a.Ended, a.Winner,
	)
	if err != nil {
		return fmt.Errorf("postgres: create auction %d: %w", a.ID, err)
	}
	return nil
}

// Get retrieves an auction by id. Inside a transaction it locks the row for
// the rest of the transaction.
func (s *AuctionStore) Get(ctx context.Context, id uint64) (domain.Auction, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = $1`+s.lock, id)
	a, err := scanAuction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: get auction %d: %w", id, err)
	}
	return a, nil
}

// Update writes the mutable fields of an auction back.
func (s *AuctionStore) Update(ctx context.Context, a domain.Auction) error {
	const query = `
		UPDATE auctions SET
			current_bid    = $2,
			highest_bidder = $3,
			bid_count      = $4,
			ended          = $5,
			winner         = $6
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		a.ID, a.CurrentBid, a.HighestBidder, a.BidCount, a.Ended, a.Winner)
	if err != nil {
		return fmt.Errorf("postgres: update auction %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpen returns unsettled auctions ordered by end time.
func (s *AuctionStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	query := `SELECT ` + auctionCols + ` FROM auctions WHERE ended = FALSE ORDER BY end_time`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open auctions: %w", err)
	}
	defer rows.Close()

	var auctions []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open auctions rows: %w", err)
	}
	return auctions, nil
}

// OpenByProperty returns the unsettled auction on a property. The partial
// unique index on (property_id) WHERE ended = FALSE guarantees at most one.
func (s *AuctionStore) OpenByProperty(ctx context.Context, propertyID uint64) (domain.Auction, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE property_id = $1 AND ended = FALSE`, propertyID)
	a, err := scanAuction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: open auction for property %d: %w", propertyID, err)
	}
	return a, nil
}

// ListEndedBefore returns settled auctions whose end time precedes the cutoff.
func (s *AuctionStore) ListEndedBefore(ctx context.Context, before time.Time) ([]domain.Auction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE ended = TRUE AND end_time < $1 ORDER BY end_time`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ended auctions: %w", err)
	}
	defer rows.Close()

	var auctions []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list ended auctions rows: %w", err)
	}
	return auctions, nil
}
