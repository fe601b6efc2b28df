package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// EscrowService runs the mediated-sale protocol: an escrow names a buyer,
// accumulates deposits into its vault, and settles exactly once, either to
// the seller (sale) or back to the buyer (refund).
type EscrowService struct {
	store  domain.Store
	cache  domain.PropertyCache
	locks  domain.LockManager
	bus    domain.SignalBus
	logger *slog.Logger

	nowFn func() time.Time
}

// NewEscrowService creates an EscrowService with all required dependencies.
func NewEscrowService(
	store domain.Store,
	cache domain.PropertyCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *EscrowService {
	return &EscrowService{
		store:  store,
		cache:  cache,
		locks:  locks,
		bus:    bus,
		logger: logger,
		nowFn:  time.Now,
	}
}

func escrowLockKey(id uint64) string {
	return fmt.Sprintf("escrow:%d", id)
}

// CreateEscrow opens an escrow between the property owner and a named buyer
// over a listed property.
func (s *EscrowService) CreateEscrow(ctx context.Context, caller domain.ActorID, propertyID uint64, buyer domain.ActorID, amount uint64, conditions string) (domain.Escrow, error) {
	if buyer.IsZero() || amount == 0 {
		return domain.Escrow{}, domain.ErrInvalidAmount
	}
	if buyer == caller {
		return domain.Escrow{}, domain.ErrSelfTrade
	}
	if len(conditions) > domain.MaxConditionsLen {
		return domain.Escrow{}, domain.FieldTooLong("conditions", domain.MaxConditionsLen)
	}

	var e domain.Escrow
	err := withLock(ctx, s.locks, propertyLockKey(propertyID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			st, err := tx.State().Get(ctx)
			if err != nil {
				return fmt.Errorf("escrow_service: get state: %w", err)
			}

			p, err := tx.Properties().Get(ctx, propertyID)
			if err != nil {
				return fmt.Errorf("escrow_service: get property %d: %w", propertyID, err)
			}
			if p.Owner != caller {
				return domain.ErrNotOwner
			}
			if p.ListingState == domain.ListingNone {
				return domain.ErrNotListed
			}

			e = domain.Escrow{
				ID:           st.NextEscrowID(),
				PropertyID:   propertyID,
				Seller:       caller,
				Buyer:        buyer,
				AgreedAmount: amount,
				Conditions:   conditions,
				CreatedAt:    s.nowFn(),
			}

			if err := tx.State().Update(ctx, st); err != nil {
				return fmt.Errorf("escrow_service: update state: %w", err)
			}
			if err := tx.Escrows().Create(ctx, e); err != nil {
				return fmt.Errorf("escrow_service: create escrow: %w", err)
			}
			return tx.Audit().Log(ctx, "escrow_created", map[string]any{
				"escrow_id":     e.ID,
				"property_id":   propertyID,
				"buyer":         string(buyer),
				"agreed_amount": amount,
			})
		})
	})
	if err != nil {
		return domain.Escrow{}, err
	}

	publishEvent(ctx, s.bus, s.logger, ChannelEscrows, "escrow_created", e.CreatedAt, e)

	s.logger.InfoContext(ctx, "escrow created",
		slog.Uint64("escrow_id", e.ID),
		slog.Uint64("property_id", propertyID),
	)
	return e, nil
}

// GetEscrow returns an escrow by id.
func (s *EscrowService) GetEscrow(ctx context.Context, id uint64) (domain.Escrow, error) {
	e, err := s.store.View().Escrows().Get(ctx, id)
	if err != nil {
		return domain.Escrow{}, fmt.Errorf("escrow_service: get escrow %d: %w", id, err)
	}
	return e, nil
}

// Deposit moves funds from the depositor into the escrow's vault. Only the
// buyer or seller may deposit, and deposits are uncapped: the total may
// exceed the agreed amount, and settlement always moves the full balance.
func (s *EscrowService) Deposit(ctx context.Context, caller domain.ActorID, escrowID, amount uint64) (domain.Escrow, error) {
	if amount == 0 {
		return domain.Escrow{}, domain.ErrInvalidAmount
	}

	var e domain.Escrow
	err := withLock(ctx, s.locks, escrowLockKey(escrowID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			var err error
			e, err = tx.Escrows().Get(ctx, escrowID)
			if err != nil {
				return fmt.Errorf("escrow_service: get escrow %d: %w", escrowID, err)
			}
			if e.Completed {
				return domain.ErrEscrowCompleted
			}
			if !e.CanDeposit(caller) {
				return domain.ErrUnauthorized
			}
			if e.DepositedAmount+amount < e.DepositedAmount {
				return domain.ErrOverflow
			}

			if err := tx.Ledger().TransferValue(ctx, caller, domain.EscrowVault(e.ID), amount); err != nil {
				return fmt.Errorf("escrow_service: hold deposit: %w", err)
			}

			e.DepositedAmount += amount

			if err := tx.Escrows().Update(ctx, e); err != nil {
				return fmt.Errorf("escrow_service: update escrow %d: %w", escrowID, err)
			}
			return tx.Audit().Log(ctx, "escrow_deposit", map[string]any{
				"escrow_id": e.ID,
				"depositor": string(caller),
				"amount":    amount,
				"total":     e.DepositedAmount,
			})
		})
	})
	if err != nil {
		return domain.Escrow{}, err
	}

	publishEvent(ctx, s.bus, s.logger, ChannelEscrows, "escrow_deposit", s.nowFn(), e)

	s.logger.InfoContext(ctx, "escrow deposit",
		slog.Uint64("escrow_id", escrowID),
		slog.Uint64("amount", amount),
	)
	return e, nil
}

// Release settles the escrow exactly once. Buyer, seller, or the marketplace
// admin may release. To the seller: fee split on the full deposited balance,
// asset to the buyer, property delisted. Otherwise: full refund to the buyer.
func (s *EscrowService) Release(ctx context.Context, caller domain.ActorID, escrowID uint64, releaseToSeller bool) (domain.Escrow, error) {
	var e domain.Escrow
	err := withLock(ctx, s.locks, escrowLockKey(escrowID), func() error {
		return s.store.InTx(ctx, func(tx domain.Tx) error {
			st, err := tx.State().Get(ctx)
			if err != nil {
				return fmt.Errorf("escrow_service: get state: %w", err)
			}

			e, err = tx.Escrows().Get(ctx, escrowID)
			if err != nil {
				return fmt.Errorf("escrow_service: get escrow %d: %w", escrowID, err)
			}
			if e.Completed {
				return domain.ErrEscrowCompleted
			}
			if e.DepositedAmount == 0 {
				return domain.ErrInsufficientFunds
			}
			if !e.CanRelease(caller) && caller != st.Admin {
				return domain.ErrUnauthorized
			}

			vault := domain.EscrowVault(e.ID)
			deposited := e.DepositedAmount

			if releaseToSeller {
				fee, net, err := domain.SplitFee(deposited, st.FeeBps)
				if err != nil {
					return err
				}
				if err := tx.Ledger().TransferValue(ctx, vault, e.Seller, net); err != nil {
					return fmt.Errorf("escrow_service: pay seller: %w", err)
				}
				if err := tx.Ledger().TransferValue(ctx, vault, st.Treasury, fee); err != nil {
					return fmt.Errorf("escrow_service: pay treasury: %w", err)
				}

				p, err := tx.Properties().Get(ctx, e.PropertyID)
				if err != nil {
					return fmt.Errorf("escrow_service: get property %d: %w", e.PropertyID, err)
				}
				if err := tx.Ledger().TransferAsset(ctx, p.AssetToken, p.Owner, e.Buyer); err != nil {
					return fmt.Errorf("escrow_service: transfer asset: %w", err)
				}
				p.Owner = e.Buyer
				p.ListingState = domain.ListingNone
				p.ListPrice = 0
				if err := tx.Properties().Update(ctx, p); err != nil {
					return fmt.Errorf("escrow_service: update property %d: %w", p.ID, err)
				}

				e.ReleasedToSeller = true
			} else {
				if err := tx.Ledger().TransferValue(ctx, vault, e.Buyer, deposited); err != nil {
					return fmt.Errorf("escrow_service: refund buyer: %w", err)
				}
				e.ReleasedToSeller = false
			}

			e.Completed = true
			e.DepositedAmount = 0

			if err := tx.Escrows().Update(ctx, e); err != nil {
				return fmt.Errorf("escrow_service: update escrow %d: %w", escrowID, err)
			}
			return tx.Audit().Log(ctx, "escrow_released", map[string]any{
				"escrow_id":          e.ID,
				"released_to_seller": releaseToSeller,
				"amount":             deposited,
				"authority":          string(caller),
			})
		})
	})
	if err != nil {
		return domain.Escrow{}, err
	}

	s.cacheInvalidate(ctx, e.PropertyID)
	publishEvent(ctx, s.bus, s.logger, ChannelEscrows, "escrow_released", s.nowFn(), e)

	s.logger.InfoContext(ctx, "escrow released",
		slog.Uint64("escrow_id", escrowID),
		slog.Bool("to_seller", releaseToSeller),
	)
	return e, nil
}

func (s *EscrowService) cacheInvalidate(ctx context.Context, propertyID uint64) {
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
