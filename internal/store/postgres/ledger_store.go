package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/propchain/marketd/internal/domain"
)

// LedgerStore implements domain.Ledger using PostgreSQL. Balances live in the
// accounts table with a non-negative check constraint; asset tokens in the
// asset_tokens table with one owner each. All methods run on the surrounding
// transaction, so a failed transfer rolls back the whole operation.
type LedgerStore struct {
	q querier
}

// Credit adds amount to an account, creating it at zero if absent.
func (s *LedgerStore) Credit(ctx context.Context, account domain.ActorID, amount uint64) error {
	const query = `
		INSERT INTO accounts (address, balance) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`

	if _, err := s.q.Exec(ctx, query, account, amount); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", account, err)
	}
	return nil
}

// Balance returns the current balance of an account. Unknown accounts report
// zero.
func (s *LedgerStore) Balance(ctx context.Context, account domain.ActorID) (uint64, error) {
	var balance uint64
	err := s.q.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE address = $1`, account).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: balance %s: %w", account, err)
	}
	return balance, nil
}

// TransferValue moves amount between accounts. The debit is guarded by the
// balance in the same statement, so a short source account never goes
// negative and the transfer fails with ErrInsufficientFunds.
func (s *LedgerStore) TransferValue(ctx context.Context, from, to domain.ActorID, amount uint64) error {
	if amount == 0 {
		return nil
	}

	const debit = `
		UPDATE accounts SET balance = balance - $2
		WHERE address = $1 AND balance >= $2`

	tag, err := s.q.Exec(ctx, debit, from, amount)
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}

	return s.Credit(ctx, to, amount)
}

// RegisterAsset records a newly issued asset token and its owner. A token id
// can only be registered once.
func (s *LedgerStore) RegisterAsset(ctx context.Context, tokenID string, owner domain.ActorID) error {
	const query = `
		INSERT INTO asset_tokens (token_id, owner) VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING`

	tag, err := s.q.Exec(ctx, query, tokenID, owner)
	if err != nil {
		return fmt.Errorf("postgres: register asset %s: %w", tokenID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// TransferAsset moves the asset token to a new owner. The ownership check and
// the write are one statement, so a stale caller fails with ErrUnauthorized.
func (s *LedgerStore) TransferAsset(ctx context.Context, tokenID string, from, to domain.ActorID) error {
	const query = `
		UPDATE asset_tokens SET owner = $3
		WHERE token_id = $1 AND owner = $2`

	tag, err := s.q.Exec(ctx, query, tokenID, from, to)
	if err != nil {
		return fmt.Errorf("postgres: transfer asset %s: %w", tokenID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnauthorized
	}
	return nil
}
