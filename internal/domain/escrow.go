package domain

import "time"

// MaxConditionsLen bounds the free-text escrow conditions field.
const MaxConditionsLen = 256

// Escrow is one mediated sale between a seller and a named buyer. Deposits
// accumulate into the escrow's vault until a single release settles it; the
// record is frozen once Completed.
//
// DepositedAmount is deliberately not capped at AgreedAmount: settlement
// always moves the full deposited balance, whatever it is.
type Escrow struct {
	ID               uint64    `json:"id"`
	PropertyID       uint64    `json:"property_id"`
	Seller           ActorID   `json:"seller"`
	Buyer            ActorID   `json:"buyer"`
	AgreedAmount     uint64    `json:"agreed_amount"`
	DepositedAmount  uint64    `json:"deposited_amount"`
	Conditions       string    `json:"conditions"`
	CreatedAt        time.Time `json:"created_at"`
	Completed        bool      `json:"completed"`
	ReleasedToSeller bool      `json:"released_to_seller"`
}

// CanRelease reports whether the given actor may settle this escrow.
// The marketplace admin is checked separately by the caller.
func (e Escrow) CanRelease(actor ActorID) bool {
	return actor == e.Buyer || actor == e.Seller
}

// CanDeposit reports whether the given actor may deposit into this escrow.
func (e Escrow) CanDeposit(actor ActorID) bool {
	return actor == e.Buyer || actor == e.Seller
}
