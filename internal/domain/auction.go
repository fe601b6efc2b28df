package domain

import "time"

const (
	// MinBidIncrement is the minimum amount by which a new bid must exceed
	// the current high bid.
	MinBidIncrement uint64 = 100_000_000

	// MaxAuctionDuration caps how far in the future an auction may close.
	MaxAuctionDuration = 30 * 24 * time.Hour
)

// Auction is the bidding state machine for one listed property. It is open
// from creation until a single terminating settlement sets Ended; after that
// every field is frozen.
type Auction struct {
	ID            uint64    `json:"id"`
	PropertyID    uint64    `json:"property_id"`
	Seller        ActorID   `json:"seller"`
	StartingPrice uint64    `json:"starting_price"`
	ReservePrice  uint64    `json:"reserve_price"`
	CurrentBid    uint64    `json:"current_bid"`
	HighestBidder *ActorID  `json:"highest_bidder,omitempty"`
	BidCount      uint64    `json:"bid_count"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Ended         bool      `json:"ended"`
	Winner        *ActorID  `json:"winner,omitempty"`
}

// MinNextBid returns the smallest acceptable bid given the current state:
// the starting price while no bid is held, afterwards the current high bid
// plus the minimum increment.
func (a Auction) MinNextBid() uint64 {
	if a.CurrentBid == 0 {
		return a.StartingPrice
	}
	return a.CurrentBid + MinBidIncrement
}

// ReserveMet reports whether the current high bid clears the reserve price.
func (a Auction) ReserveMet() bool {
	return a.CurrentBid >= a.ReservePrice
}

// Bid is one accepted bid, recorded append-only. Sequence is the auction's
// bid count at acceptance time and addresses the record together with the
// auction and bidder. IsWinning is cleared when the bid is outbid.
type Bid struct {
	AuctionID uint64    `json:"auction_id"`
	Bidder    ActorID   `json:"bidder"`
	Sequence  uint64    `json:"sequence"`
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	IsWinning bool      `json:"is_winning"`
}
