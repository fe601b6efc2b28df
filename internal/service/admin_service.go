package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/propchain/marketd/internal/domain"
)

// AdminService handles marketplace initialization, platform settings, and the
// operator-facing ledger endpoints.
type AdminService struct {
	store  domain.Store
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewAdminService creates an AdminService with all required dependencies.
func NewAdminService(store domain.Store, bus domain.SignalBus, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// Initialize creates the singleton marketplace state. The caller becomes the
// admin; treasury defaults to the caller and feeBps to the platform default
// when left zero. Fails with ErrAlreadyInitialized on a second call.
func (s *AdminService) Initialize(ctx context.Context, caller, treasury domain.ActorID, feeBps uint64) (domain.MarketplaceState, error) {
	if caller.IsZero() {
		return domain.MarketplaceState{}, domain.ErrUnauthorized
	}
	if feeBps == 0 {
		feeBps = domain.DefaultFeeBps
	}
	if feeBps > domain.MaxFeeBps {
		return domain.MarketplaceState{}, domain.ErrInvalidFee
	}
	if treasury.IsZero() {
		treasury = caller
	}

	st := domain.MarketplaceState{
		Initialized: true,
		FeeBps:      feeBps,
		Treasury:    treasury,
		Admin:       caller,
	}

	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.State().Init(ctx, st); err != nil {
			return fmt.Errorf("admin_service: init state: %w", err)
		}
		return tx.Audit().Log(ctx, "marketplace_initialized", map[string]any{
			"admin":    string(caller),
			"treasury": string(treasury),
			"fee_bps":  feeBps,
		})
	})
	if err != nil {
		return domain.MarketplaceState{}, err
	}

	s.logger.InfoContext(ctx, "marketplace initialized",
		slog.String("admin", string(caller)),
		slog.Uint64("fee_bps", feeBps),
	)
	return st, nil
}

// GetState returns the current marketplace state.
func (s *AdminService) GetState(ctx context.Context) (domain.MarketplaceState, error) {
	st, err := s.store.View().State().Get(ctx)
	if err != nil {
		return domain.MarketplaceState{}, fmt.Errorf("admin_service: get state: %w", err)
	}
	return st, nil
}

// UpdateSettings applies the provided fields independently: a nil feeBps or
// treasury leaves that field unchanged. Admin only; fee capped at MaxFeeBps.
func (s *AdminService) UpdateSettings(ctx context.Context, caller domain.ActorID, feeBps *uint64, treasury *domain.ActorID) (domain.MarketplaceState, error) {
	if feeBps != nil && *feeBps > domain.MaxFeeBps {
		return domain.MarketplaceState{}, domain.ErrInvalidFee
	}

	var st domain.MarketplaceState
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		st, err = tx.State().Get(ctx)
		if err != nil {
			return fmt.Errorf("admin_service: get state: %w", err)
		}
		if st.Admin != caller {
			return domain.ErrUnauthorized
		}

		if feeBps != nil {
			st.FeeBps = *feeBps
		}
		if treasury != nil && !treasury.IsZero() {
			st.Treasury = *treasury
		}

		if err := tx.State().Update(ctx, st); err != nil {
			return fmt.Errorf("admin_service: update state: %w", err)
		}
		return tx.Audit().Log(ctx, "settings_updated", map[string]any{
			"fee_bps":  st.FeeBps,
			"treasury": string(st.Treasury),
		})
	})
	if err != nil {
		return domain.MarketplaceState{}, err
	}

	s.logger.InfoContext(ctx, "platform settings updated",
		slog.Uint64("fee_bps", st.FeeBps),
		slog.String("treasury", string(st.Treasury)),
	)
	return st, nil
}

// CreditAccount adds funds to a ledger account. Reached only through the
// operator API key; this is how participant balances are funded.
func (s *AdminService) CreditAccount(ctx context.Context, account domain.ActorID, amount uint64) error {
	if account.IsZero() || amount == 0 {
		return domain.ErrInvalidAmount
	}

	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.Ledger().Credit(ctx, account, amount); err != nil {
			return fmt.Errorf("admin_service: credit: %w", err)
		}
		return tx.Audit().Log(ctx, "account_credited", map[string]any{
			"account": string(account),
			"amount":  amount,
		})
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account credited",
		slog.String("account", string(account)),
		slog.Uint64("amount", amount),
	)
	return nil
}

// GetBalance returns the ledger balance of an account. Unknown accounts
// report zero.
func (s *AdminService) GetBalance(ctx context.Context, account domain.ActorID) (uint64, error) {
	balance, err := s.store.View().Ledger().Balance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("admin_service: balance: %w", err)
	}
	return balance, nil
}

// ListAuditLog returns recent audit entries, newest first.
func (s *AdminService) ListAuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries, err := s.store.View().Audit().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("admin_service: list audit: %w", err)
	}
	return entries, nil
}
