package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/propchain/marketd/internal/domain"
)

// EscrowStore implements domain.EscrowStore using PostgreSQL.
type EscrowStore struct {
	q    querier
	lock string
}

const escrowCols = `id, property_id, seller, buyer, agreed_amount,
	deposited_amount, conditions, created_at, completed, released_to_seller`

func scanEscrow(row pgx.Row) (domain.Escrow, error) {
	var e domain.Escrow
	err := row.Scan(
		&e.ID, &e.PropertyID, &e.Seller, &e.Buyer, &e.AgreedAmount,
		&e.DepositedAmount, &e.Conditions, &e.CreatedAt, &e.Completed,
		&e.ReleasedToSeller,
	)
	if err != nil {
		return domain.Escrow{}, err
	}
	return e, nil
}

// Create inserts a new escrow record.
func (s *EscrowStore) Create(ctx context.Context, e domain.Escrow) error {
	const query = `
		INSERT INTO escrows (
			id, property_id, seller, buyer, agreed_amount,
			deposited_amount, conditions, created_at, completed, released_to_seller
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := s.q.Exec(ctx, query,
		e.ID, e.PropertyID, e.Seller, e.Buyer, e.AgreedAmount,
		e.DepositedAmount, e.Conditions, e.CreatedAt, e.Completed,
		e.ReleasedToSeller,
	)
	if err != nil {
		return fmt.Errorf("postgres: create escrow %d: %w", e.ID, err)
	}
	return nil
}

// Get retrieves an escrow by id. Inside a transaction it locks the row for
// the rest of the transaction.
func (s *EscrowStore) Get(ctx context.Context, id uint64) (domain.Escrow, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+escrowCols+` FROM escrows WHERE id = $1`+s.lock, id)
	e, err := scanEscrow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Escrow{}, domain.ErrNotFound
		}
		return domain.Escrow{}, fmt.Errorf("postgres: get escrow %d: %w", id, err)
	}
	return e, nil
}

// Update writes the mutable fields of an escrow back.
func (s *EscrowStore) Update(ctx context.Context, e domain.Escrow) error {
	const query = `
		UPDATE escrows SET
			deposited_amount   = $2,
			completed          = $3,
			released_to_seller = $4
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		e.ID, e.DepositedAmount, e.Completed, e.ReleasedToSeller)
	if err != nil {
		return fmt.Errorf("postgres: update escrow %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCompletedBefore returns settled escrows created before the cutoff.
func (s *EscrowStore) ListCompletedBefore(ctx context.Context, before time.Time) ([]domain.Escrow, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+escrowCols+` FROM escrows WHERE completed = TRUE AND created_at < $1 ORDER BY id`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list completed escrows: %w", err)
	}
	defer rows.Close()

	var escrows []domain.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan escrow: %w", err)
		}
		escrows = append(escrows, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list completed escrows rows: %w", err)
	}
	return escrows, nil
}
