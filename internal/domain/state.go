package domain

// Platform fee bounds, in basis points.
const (
	DefaultFeeBps uint64 = 250
	MaxFeeBps     uint64 = 1_000
)

// MarketplaceState is the singleton global record: id counters for every
// entity kind, the platform fee, and the privileged identities. Created once
// by initialize and mutated under the same transactional discipline as any
// other entity.
type MarketplaceState struct {
	Initialized   bool    `json:"initialized"`
	PropertyCount uint64  `json:"property_count"`
	AuctionCount  uint64  `json:"auction_count"`
	EscrowCount   uint64  `json:"escrow_count"`
	FeeBps        uint64  `json:"fee_bps"`
	Treasury      ActorID `json:"treasury"`
	Admin         ActorID `json:"admin"`
}

// NextPropertyID increments the property counter and returns the new id.
// Counter values are assigned inside the creating transaction, so ids are
// strictly increasing and globally unique.
func (s *MarketplaceState) NextPropertyID() uint64 {
	s.PropertyCount++
	return s.PropertyCount
}

// NextAuctionID increments the auction counter and returns the new id.
func (s *MarketplaceState) NextAuctionID() uint64 {
	s.AuctionCount++
	return s.AuctionCount
}

// NextEscrowID increments the escrow counter and returns the new id.
func (s *MarketplaceState) NextEscrowID() uint64 {
	s.EscrowCount++
	return s.EscrowCount
}
