package domain

import "fmt"

// ActorID is the verified identity of a marketplace participant: a hex-encoded
// secp256k1 address. The engine never verifies signatures itself; it only
// compares identities handed to it by the transport layer.
type ActorID string

// IsZero reports whether the actor is unset.
func (a ActorID) IsZero() bool {
	return a == ""
}

// AuctionVault returns the ledger account that custodies funds held against an
// auction while bidding is open.
func AuctionVault(auctionID uint64) ActorID {
	return ActorID(fmt.Sprintf("auction:%d", auctionID))
}

// EscrowVault returns the ledger account that custodies funds deposited into
// an escrow pending release.
func EscrowVault(escrowID uint64) ActorID {
	return ActorID(fmt.Sprintf("escrow:%d", escrowID))
}
