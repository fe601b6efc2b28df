package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propchain/marketd/internal/domain"
)

// ListingService handles property registration and the direct-sale flow:
// create, list, cancel, and buy.
type ListingService struct {
	store  domain.Store
	cache  domain.PropertyCache
	locks  domain.LockManager
	bus    domain.SignalBus
	logger *slog.Logger

	nowFn func() time.Time
}

// NewListingService creates a ListingService with all required dependencies.
func NewListingService(
	store domain.Store,
	cache domain.PropertyCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		store:  store,
		cache:  cache,
		locks:  locks,
		bus:    bus,
		logger: logger,
		nowFn:  time.Now,
	}
}

func propertyLockKey(id uint64) string {
	return fmt.Sprintf("property:%d", id)
}

// CreateProperty registers a new property owned by the caller. The next id
// comes from the marketplace counter inside the same transaction, and the
// asset token handle is registered with the ledger under the owner.
func (s *ListingService) CreateProperty(ctx context.Context, owner domain.ActorID, attrs domain.PropertyAttributes) (domain.Property, error) {
	if owner.IsZero() {
		return domain.Property{}, domain.ErrUnauthorized
	}
	if err := attrs.Validate(); err != nil {
		return domain.Property{}, err
	}

	var p domain.Property
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		st, err := tx.State().Get(ctx)
		if err != nil {
			return fmt.Errorf("listing_service: get state: %w", err)
		}

		p = domain.Property{
			ID:           st.NextPropertyID(),
			Owner:        owner,
			AssetToken:   uuid.NewString(),
			Title:        attrs.Title,
			Description:  attrs.Description,
			ImageURL:     attrs.ImageURL,
			Location:     attrs.Location,
			PropertyType: attrs.PropertyType,
			SizeSqft:     attrs.SizeSqft,
			Bedrooms:     attrs.Bedrooms,
			Bathrooms:    attrs.Bathrooms,
			YearBuilt:    attrs.YearBuilt,
			CreatedAt:    s.nowFn(),
			ListingState: domain.ListingNone,
		}

		if err := tx.State().Update(ctx, st); err != nil {
			return fmt.Errorf("listing_service: update state: %w", err)
		}
		if err := tx.Properties().Create(ctx, p); err != nil {
			return fmt.Errorf("listing_service: create property: %w", err)
		}
		if err := tx.Ledger().RegisterAsset(ctx, p.AssetToken, owner); err != nil {
			return fmt.Errorf("listing_service: register asset: %w", err)
		}
		return tx.Audit().Log(ctx, "property_created", map[string]any{
			"property_id": p.ID,
			"owner":       string(owner),
			"asset_token": p.AssetToken,
		})
	})
	if err != nil {
		return domain.Property{}, err
	}

	s.cacheSet(ctx, p)
	publishEvent(ctx, s.bus, s.logger, ChannelProperties, "property_created", p.CreatedAt, p)

	s.logger.InfoContext(ctx, "property created",
		slog.Uint64("property_id", p.ID),
		slog.String("owner", string(owner)),
	)
	return p, nil
}

// GetProperty returns a property by id, reading through the cache.
func (s *ListingService) GetProperty(ctx context.Context, id uint64) (domain.Property, error) {
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, id); err == nil {
			return p, nil
		}
	}

	p, err := s.store.View().Properties().Get(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("listing_service: get property %d: %w", id, err)
	}

	s.cacheSet(ctx, p)
	return p, nil
}

// ListProperties returns properties with pagination.
func (s *ListingService) ListProperties(ctx context.Context, opts domain.ListOpts) ([]domain.Property, error) {
	props, err := s.store.View().Properties().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list properties: %w", err)
	}
	return props, nil
}

// ListByOwner returns one owner's properties with pagination.
func (s *ListingService) ListByOwner(ctx context.Context, owner domain.ActorID, opts domain.ListOpts) ([]domain.Property, error) {
	props, err := s.store.View().Properties().ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list by owner: %w", err)
	}
	return props, nil
}

// ListProperty puts a property up for sale. Direct mode records the asking
// price on the listing; auction mode marks the property and expects a
// follow-up auction creation.
func (s *ListingService) ListProperty(ctx context.Context, caller domain.ActorID, id uint64, mode domain.ListingMode, price uint64) (domain.Property, error) {
	if mode != domain.ListingModeDirect && mode != domain.ListingModeAuction {
		return domain.Property{}, domain.ErrInvalidMode
	}
	if price < domain.MinListingPrice {
		return domain.Property{}, domain.PriceTooLow(domain.MinListingPrice)
	}

	var p domain.Property
	err := withLock(ctx, s.locks, propertyLockKey(id), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			var err error
			p, err = tx.Properties().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("listing_service: get property %d: %w", id, err)
			}
			if p.Owner != caller {
				return domain.ErrNotOwner
			}
			if p.ListingState != domain.ListingNone {
				return domain.ErrAlreadyListed
			}

			if mode == domain.ListingModeDirect {
				p.ListingState = domain.ListingDirect
				p.ListPrice = price
			} else {
				p.ListingState = domain.ListingAuction
				p.ListPrice = 0
			}

			if err := tx.Properties().Update(ctx, p); err != nil {
				return fmt.Errorf("listing_service: update property %d: %w", id, err)
			}
			return tx.Audit().Log(ctx, "property_listed", map[string]any{
				"property_id": p.ID,
				"mode":        string(mode),
				"price":       price,
			})
		})
	})
	if err != nil {
		return domain.Property{}, err
	}

	s.cacheInvalidate(ctx, id)
	publishEvent(ctx, s.bus, s.logger, ChannelProperties, "property_listed", s.nowFn(), p)

	s.logger.InfoContext(ctx, "property listed",
		slog.Uint64("property_id", id),
		slog.String("mode", string(mode)),
		slog.Uint64("price", price),
	)
	return p, nil
}

// CancelListing takes a listed property off the market.
func (s *ListingService) CancelListing(ctx context.Context, caller domain.ActorID, id uint64) (domain.Property, error) {
	var p domain.Property
	err := withLock(ctx, s.locks, propertyLockKey(id), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			var err error
			p, err = tx.Properties().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("listing_service: get property %d: %w", id, err)
			}
			if p.Owner != caller {
				return domain.ErrNotOwner
			}
			if p.ListingState == domain.ListingNone {
				return domain.ErrNotListed
			}

			p.ListingState = domain.ListingNone
			p.ListPrice = 0

			if err := tx.Properties().Update(ctx, p); err != nil {
				return fmt.Errorf("listing_service: update property %d: %w", id, err)
			}
			return tx.Audit().Log(ctx, "listing_cancelled", map[string]any{
				"property_id": p.ID,
			})
		})
	})
	if err != nil {
		return domain.Property{}, err
	}

	s.cacheInvalidate(ctx, id)
	publishEvent(ctx, s.bus, s.logger, ChannelProperties, "listing_cancelled", s.nowFn(), p)
	return p, nil
}

// BuyDirect executes a direct sale: the buyer pays the asking price, the
// seller receives the net, the treasury the fee, and the asset token changes
// hands. All of it commits or none of it does.
func (s *ListingService) BuyDirect(ctx context.Context, buyer domain.ActorID, id uint64) (domain.Property, error) {
	if buyer.IsZero() {
		return domain.Property{}, domain.ErrUnauthorized
	}

	var p domain.Property
	err := withLock(ctx, s.locks, propertyLockKey(id), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			st, err := tx.State().Get(ctx)
			if err != nil {
				return fmt.Errorf("listing_service: get state: %w", err)
			}

			p, err = tx.Properties().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("listing_service: get property %d: %w", id, err)
			}
			if p.ListingState != domain.ListingDirect {
				return domain.ErrNotListed
			}
			if buyer == p.Owner {
				return domain.ErrSelfTrade
			}

			fee, net, err := domain.SplitFee(p.ListPrice, st.FeeBps)
			if err != nil {
				return err
			}

			seller := p.Owner
			if err := tx.Ledger().TransferValue(ctx, buyer, seller, net); err != nil {
				return fmt.Errorf("listing_service: pay seller: %w", err)
			}
			if err := tx.Ledger().TransferValue(ctx, buyer, st.Treasury, fee); err != nil {
				return fmt.Errorf("listing_service: pay treasury: %w", err)
			}
			if err := tx.Ledger().TransferAsset(ctx, p.AssetToken, seller, buyer); err != nil {
				return fmt.Errorf("listing_service: transfer asset: %w", err)
			}

			price := p.ListPrice
			p.Owner = buyer
			p.ListingState = domain.ListingNone
			p.ListPrice = 0

			if err := tx.Properties().Update(ctx, p); err != nil {
				return fmt.Errorf("listing_service: update property %d: %w", id, err)
			}
			return tx.Audit().Log(ctx, "property_sold", map[string]any{
				"property_id": p.ID,
				"seller":      string(seller),
				"buyer":       string(buyer),
				"price":       price,
				"fee":         fee,
			})
		})
	})
	if err != nil {
		return domain.Property{}, err
	}

	s.cacheInvalidate(ctx, id)
	publishEvent(ctx, s.bus, s.logger, ChannelProperties, "property_sold", s.nowFn(), p)

	s.logger.InfoContext(ctx, "property sold direct",
		slog.Uint64("property_id", id),
		slog.String("buyer", string(buyer)),
	)
	return p, nil
}

func (s *ListingService) cacheSet(ctx context.Context, p domain.Property) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "property cache set failed",
			slog.Uint64("property_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ListingService) cacheInvalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		// Non-fatal: the entry expires on its own TTL.
		s.logger.WarnContext(ctx, "property cache invalidate failed",
			slog.Uint64("property_id", id),
			slog.String("error", err.Error()),
		)
	}
}
