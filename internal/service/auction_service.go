package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// AuctionService runs the English-auction state machine: creation, bidding
// with atomic refund of the outbid party, and a single terminating
// settlement per auction.
type AuctionService struct {
	store  domain.Store
	cache  domain.PropertyCache
	locks  domain.LockManager
	bus    domain.SignalBus
	logger *slog.Logger

	nowFn func() time.Time
}

// NewAuctionService creates an AuctionService with all required dependencies.
func NewAuctionService(
	store domain.Store,
	cache domain.PropertyCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		store:  store,
		cache:  cache,
		locks:  locks,
		bus:    bus,
		logger: logger,
		nowFn:  time.Now,
	}
}

func auctionLockKey(id uint64) string {
	return fmt.Sprintf("auction:%d", id)
}

// CreateAuction opens an auction on a property the caller owns and has listed
// in auction mode. The end time is fixed at creation; nothing extends it.
func (s *AuctionService) CreateAuction(ctx context.Context, caller domain.ActorID, propertyID, startingPrice, reservePrice uint64, duration time.Duration) (domain.Auction, error) {
	if duration <= 0 || duration > domain.MaxAuctionDuration {
		return domain.Auction{}, domain.ErrInvalidDuration
	}
	if startingPrice == 0 {
		return domain.Auction{}, domain.ErrInvalidPrice
	}
	if reservePrice < startingPrice {
		return domain.Auction{}, domain.ErrInvalidPrice
	}

	var a domain.Auction
	err := withLock(ctx, s.locks, propertyLockKey(propertyID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			st, err := tx.State().Get(ctx)
			if err != nil {
				return fmt.Errorf("auction_service: get state: %w", err)
			}

			p, err := tx.Properties().Get(ctx, propertyID)
			if err != nil {
				return fmt.Errorf("auction_service: get property %d: %w", propertyID, err)
			}
			if p.Owner != caller {
				return domain.ErrNotOwner
			}
			if p.ListingState != domain.ListingAuction {
				return domain.ErrNotListed
			}

			// One open auction per property. The listing check alone is not
			// enough: a settled auction delists the property, which would
			// leave any second auction free to settle against the new owner.
			if _, err := tx.Auctions().OpenByProperty(ctx, propertyID); err == nil {
				return domain.ErrAuctionActive
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("auction_service: open auction for property %d: %w", propertyID, err)
			}

			now := s.nowFn()
			a = domain.Auction{
				ID:            st.NextAuctionID(),
				PropertyID:    propertyID,
				Seller:        caller,
				StartingPrice: startingPrice,
				ReservePrice:  reservePrice,
				StartTime:     now,
				EndTime:       now.Add(duration),
			}

			if err := tx.State().Update(ctx, st); err != nil {
				return fmt.Errorf("auction_service: update state: %w", err)
			}
			if err := tx.Auctions().Create(ctx, a); err != nil {
				return fmt.Errorf("auction_service: create auction: %w", err)
			}
			return tx.Audit().Log(ctx, "auction_created", map[string]any{
				"auction_id":     a.ID,
				"property_id":    propertyID,
				"starting_price": startingPrice,
				"reserve_price":  reservePrice,
				"end_time":       a.EndTime,
			})
		})
	})
	if err != nil {
		return domain.Auction{}, err
	}

	publishEvent(ctx, s.bus, s.logger, ChannelAuctions, "auction_created", a.StartTime, a)

	s.logger.InfoContext(ctx, "auction created",
		slog.Uint64("auction_id", a.ID),
		slog.Uint64("property_id", propertyID),
	)
	return a, nil
}

// GetAuction returns an auction by id.
func (s *AuctionService) GetAuction(ctx context.Context, id uint64) (domain.Auction, error) {
	a, err := s.store.View().Auctions().Get(ctx, id)
	if err != nil {
		return domain.Auction{}, fmt.Errorf("auction_service: get auction %d: %w", id, err)
	}
	return a, nil
}

// ListOpen returns unsettled auctions ordered by end time.
func (s *AuctionService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	auctions, err := s.store.View().Auctions().ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("auction_service: list open: %w", err)
	}
	return auctions, nil
}

// ListBids returns an auction's full bid history in placement order.
func (s *AuctionService) ListBids(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	bids, err := s.store.View().Bids().ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction_service: list bids: %w", err)
	}
	return bids, nil
}

// PlaceBid accepts a bid when the auction is open, the bidder is not the
// seller, and the amount clears the minimum. The bid amount moves into the
// auction's vault and the previously held funds return to the outbid party,
// all in the transaction that records the bid.
func (s *AuctionService) PlaceBid(ctx context.Context, bidder domain.ActorID, auctionID, amount uint64) (domain.Auction, error) {
	if bidder.IsZero() {
		return domain.Auction{}, domain.ErrUnauthorized
	}

	var a domain.Auction
	err := withLock(ctx, s.locks, auctionLockKey(auctionID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			var err error
			a, err = tx.Auctions().Get(ctx, auctionID)
			if err != nil {
				return fmt.Errorf("auction_service: get auction %d: %w", auctionID, err)
			}

			now := s.nowFn()
			if a.Ended || now.After(a.EndTime) {
				return domain.ErrAuctionEnded
			}
			if bidder == a.Seller {
				return domain.ErrSelfTrade
			}
			if minBid := a.MinNextBid(); amount < minBid {
				return domain.BidTooLow(minBid)
			}

			vault := domain.AuctionVault(a.ID)

			// Return the previous high bidder's held funds before taking the
			// new deposit, in the same transaction.
			if a.HighestBidder != nil {
				if err := tx.Ledger().TransferValue(ctx, vault, *a.HighestBidder, a.CurrentBid); err != nil {
					return fmt.Errorf("auction_service: refund outbid: %w", err)
				}
				if err := tx.Bids().ClearWinning(ctx, a.ID); err != nil {
					return fmt.Errorf("auction_service: clear winning: %w", err)
				}
			}

			if err := tx.Ledger().TransferValue(ctx, bidder, vault, amount); err != nil {
				return fmt.Errorf("auction_service: hold bid: %w", err)
			}

			a.CurrentBid = amount
			a.HighestBidder = &bidder
			a.BidCount++

			if err := tx.Auctions().Update(ctx, a); err != nil {
				return fmt.Errorf("auction_service: update auction %d: %w", auctionID, err)
			}
			bid := domain.Bid{
				AuctionID: a.ID,
				Bidder:    bidder,
				Sequence:  a.BidCount,
				Amount:    amount,
				Timestamp: now,
				IsWinning: true,
			}
			if err := tx.Bids().Create(ctx, bid); err != nil {
				return fmt.Errorf("auction_service: record bid: %w", err)
			}
			return tx.Audit().Log(ctx, "bid_placed", map[string]any{
				"auction_id": a.ID,
				"bidder":     string(bidder),
				"amount":     amount,
				"sequence":   a.BidCount,
			})
		})
	})
	if err != nil {
		return domain.Auction{}, err
	}

	publishEvent(ctx, s.bus, s.logger, ChannelBids, "bid_placed", s.nowFn(), a)

	s.logger.InfoContext(ctx, "bid placed",
		slog.Uint64("auction_id", auctionID),
		slog.String("bidder", string(bidder)),
		slog.Uint64("amount", amount),
	)
	return a, nil
}

// EndAuction settles an expired auction. Callable by anyone, exactly once: a
// second call fails with ErrAuctionEnded and moves nothing. Reserve met pays
// out the seller and treasury and hands the asset to the winner; reserve not
// met refunds the high bidder in full. Either way the property returns to
// the unlisted state.
func (s *AuctionService) EndAuction(ctx context.Context, auctionID uint64) (domain.Auction, error) {
	var a domain.Auction
	err := withLock(ctx, s.locks, auctionLockKey(auctionID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			var err error
			a, err = tx.Auctions().Get(ctx, auctionID)
			if err != nil {
				return fmt.Errorf("auction_service: get auction %d: %w", auctionID, err)
			}
			if a.Ended {
				return domain.ErrAuctionEnded
			}
			if s.nowFn().Before(a.EndTime) {
				return domain.ErrAuctionNotEnded
			}

			st, err := tx.State().Get(ctx)
			if err != nil {
				return fmt.Errorf("auction_service: get state: %w", err)
			}
			p, err := tx.Properties().Get(ctx, a.PropertyID)
			if err != nil {
				return fmt.Errorf("auction_service: get property %d: %w", a.PropertyID, err)
			}

			a.Ended = true
			vault := domain.AuctionVault(a.ID)

			switch {
			case a.HighestBidder != nil && a.ReserveMet():
				fee, net, err := domain.SplitFee(a.CurrentBid, st.FeeBps)
				if err != nil {
					return err
				}
				if err := tx.Ledger().TransferValue(ctx, vault, a.Seller, net); err != nil {
					return fmt.Errorf("auction_service: pay seller: %w", err)
				}
				if err := tx.Ledger().TransferValue(ctx, vault, st.Treasury, fee); err != nil {
					return fmt.Errorf("auction_service: pay treasury: %w", err)
				}
				if err := tx.Ledger().TransferAsset(ctx, p.AssetToken, p.Owner, *a.HighestBidder); err != nil {
					return fmt.Errorf("auction_service: transfer asset: %w", err)
				}
				winner := *a.HighestBidder
				a.Winner = &winner
				p.Owner = winner

			case a.HighestBidder != nil:
				// Reserve not met: the held bid goes back in full.
				if err := tx.Ledger().TransferValue(ctx, vault, *a.HighestBidder, a.CurrentBid); err != nil {
					return fmt.Errorf("auction_service: refund bidder: %w", err)
				}
			}

			p.ListingState = domain.ListingNone
			p.ListPrice = 0

			if err := tx.Properties().Update(ctx, p); err != nil {
				return fmt.Errorf("auction_service: update property %d: %w", p.ID, err)
			}
			if err := tx.Auctions().Update(ctx, a); err != nil {
				return fmt.Errorf("auction_service: update auction %d: %w", auctionID, err)
			}
			return tx.Audit().Log(ctx, "auction_ended", map[string]any{
				"auction_id":  a.ID,
				"property_id": a.PropertyID,
				"final_bid":   a.CurrentBid,
				"reserve_met": a.ReserveMet() && a.HighestBidder != nil,
			})
		})
	})
	if err != nil {
		return domain.Auction{}, err
	}

	s.cacheInvalidate(ctx, a.PropertyID)
	publishEvent(ctx, s.bus, s.logger, ChannelAuctions, "auction_ended", s.nowFn(), a)

	s.logger.InfoContext(ctx, "auction ended",
		slog.Uint64("auction_id", auctionID),
		slog.Bool("sold", a.Winner != nil),
	)
	return a, nil
}

func (s *AuctionService) cacheInvalidate(ctx context.Context, propertyID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, propertyID); err != nil {
		s.logger.WarnContext(ctx, "property cache invalidate failed",
			slog.Uint64("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}
}
