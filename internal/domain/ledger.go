package domain

import "context"

// Ledger is the value- and asset-transfer collaborator. Implementations must
// participate in the surrounding transaction: a transfer that cannot complete
// (unknown account, short balance, unowned token) fails the whole operation.
type Ledger interface {
	// Credit adds amount to an account, creating it at zero if absent.
	Credit(ctx context.Context, account ActorID, amount uint64) error

	// Balance returns the current balance of an account. Unknown accounts
	// report zero, not ErrNotFound.
	Balance(ctx context.Context, account ActorID) (uint64, error)

	// TransferValue moves amount from one account to another. Fails with
	// ErrInsufficientFunds when the source balance is short.
	TransferValue(ctx context.Context, from, to ActorID, amount uint64) error

	// RegisterAsset records a newly issued asset token and its owner.
	RegisterAsset(ctx context.Context, tokenID string, owner ActorID) error

	// TransferAsset moves the asset token from one owner to another. Fails
	// with ErrUnauthorized when from does not hold the token.
	TransferAsset(ctx context.Context, tokenID string, from, to ActorID) error
}
