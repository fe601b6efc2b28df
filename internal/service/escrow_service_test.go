package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/propchain/marketd/internal/domain"
)

// escrowFixture lists a property and opens an escrow with bob as buyer.
func escrowFixture(t *testing.T, env *testEnv, amount uint64) (domain.Property, domain.Escrow) {
	t.Helper()

	p := env.newProperty(alice)
	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}
	e, err := env.escrow.CreateEscrow(env.ctx, alice, p.ID, bob, amount, "subject to inspection")
	if err != nil {
		t.Fatalf("create escrow: %v", err)
	}
	return p, e
}

func TestCreateEscrowValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	if _, err := env.escrow.CreateEscrow(env.ctx, alice, p.ID, bob, 0, ""); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.escrow.CreateEscrow(env.ctx, alice, p.ID, alice, 1, ""); !errors.Is(err, domain.ErrSelfTrade) {
		t.Fatalf("self buyer: expected ErrSelfTrade, got %v", err)
	}
	long := strings.Repeat("c", domain.MaxConditionsLen+1)
	if _, err := env.escrow.CreateEscrow(env.ctx, alice, p.ID, bob, 1, long); !errors.Is(err, domain.ErrFieldTooLong) {
		t.Fatalf("long conditions: expected ErrFieldTooLong, got %v", err)
	}
	// Unlisted property cannot be escrowed.
	if _, err := env.escrow.CreateEscrow(env.ctx, alice, p.ID, bob, 1, ""); !errors.Is(err, domain.ErrNotListed) {
		t.Fatalf("unlisted: expected ErrNotListed, got %v", err)
	}

	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := env.escrow.CreateEscrow(env.ctx, bob, p.ID, carol, 1, ""); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("non-owner: expected ErrNotOwner, got %v", err)
	}
}

func TestEscrowReleaseToSellerScenario(t *testing.T) {
	env := newTestEnv(t)
	const amount = uint64(5_000_000_000)
	p, e := escrowFixture(t, env, amount)

	env.fund(bob, amount)
	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	released, err := env.escrow.Release(env.ctx, bob, e.ID, true)
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	if !released.Completed || !released.ReleasedToSeller || released.DepositedAmount != 0 {
		t.Errorf("escrow after release: %+v", released)
	}
	// 250 bps fee on 5e9 = 125e6; net to seller 4.875e9.
	if env.balance(alice) != 4_875_000_000 {
		t.Errorf("seller = %d, want 4875000000", env.balance(alice))
	}
	if env.balance(treasuryActor) != 125_000_000 {
		t.Errorf("treasury = %d, want 125000000", env.balance(treasuryActor))
	}
	if env.balance(domain.EscrowVault(e.ID)) != 0 {
		t.Errorf("vault not drained: %d", env.balance(domain.EscrowVault(e.ID)))
	}

	got, err := env.listing.GetProperty(env.ctx, p.ID)
	if err != nil {
		t.Fatalf("get property: %v", err)
	}
	if got.Owner != bob || got.ListingState != domain.ListingNone {
		t.Errorf("property owner=%s state=%s, want %s/not_listed", got.Owner, got.ListingState, bob)
	}
	if env.assetOwner(p.AssetToken) != bob {
		t.Errorf("asset owner = %s, want %s", env.assetOwner(p.AssetToken), bob)
	}
}

func TestEscrowRefundToBuyer(t *testing.T) {
	env := newTestEnv(t)
	const amount = uint64(3_000_000_000)
	p, e := escrowFixture(t, env, amount)

	env.fund(bob, amount)
	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	released, err := env.escrow.Release(env.ctx, alice, e.ID, false)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !released.Completed || released.ReleasedToSeller {
		t.Errorf("escrow after refund: %+v", released)
	}

	if env.balance(bob) != amount {
		t.Errorf("buyer = %d, want full refund %d", env.balance(bob), amount)
	}
	if env.balance(alice) != 0 {
		t.Errorf("seller = %d, want 0", env.balance(alice))
	}
	got, err := env.listing.GetProperty(env.ctx, p.ID)
	if err != nil {
		t.Fatalf("get property: %v", err)
	}
	if got.Owner != alice {
		t.Errorf("ownership changed on refund: owner = %s", got.Owner)
	}
}

func TestEscrowOverDepositSettlesInFull(t *testing.T) {
	env := newTestEnv(t)
	const agreed = uint64(5_000_000_000)
	const extra = uint64(1_000_000_000)
	_, e := escrowFixture(t, env, agreed)

	env.fund(bob, agreed+extra)
	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, agreed); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Deposits are uncapped; the total may exceed the agreed amount.
	over, err := env.escrow.Deposit(env.ctx, bob, e.ID, extra)
	if err != nil {
		t.Fatalf("over-deposit: %v", err)
	}
	if over.DepositedAmount != agreed+extra {
		t.Fatalf("deposited = %d, want %d", over.DepositedAmount, agreed+extra)
	}

	if _, err := env.escrow.Release(env.ctx, bob, e.ID, true); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Settlement split the full 6e9: fee 150e6, net 5.85e9.
	if env.balance(alice) != 5_850_000_000 {
		t.Errorf("seller = %d, want 5850000000", env.balance(alice))
	}
	if env.balance(treasuryActor) != 150_000_000 {
		t.Errorf("treasury = %d, want 150000000", env.balance(treasuryActor))
	}
}

func TestEscrowGuards(t *testing.T) {
	env := newTestEnv(t)
	const amount = uint64(1_000_000_000)
	_, e := escrowFixture(t, env, amount)

	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("zero deposit: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.escrow.Deposit(env.ctx, carol, e.ID, amount); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger deposit: expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.escrow.Release(env.ctx, bob, e.ID, true); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("empty release: expected ErrInsufficientFunds, got %v", err)
	}

	env.fund(bob, amount)
	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := env.escrow.Release(env.ctx, carol, e.ID, true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger release: expected ErrUnauthorized, got %v", err)
	}

	// The marketplace admin may arbitrate a release.
	if _, err := env.escrow.Release(env.ctx, adminActor, e.ID, false); err != nil {
		t.Fatalf("admin release: %v", err)
	}
	if _, err := env.escrow.Deposit(env.ctx, bob, e.ID, amount); !errors.Is(err, domain.ErrEscrowCompleted) {
		t.Fatalf("deposit after completion: expected ErrEscrowCompleted, got %v", err)
	}
	if _, err := env.escrow.Release(env.ctx, bob, e.ID, true); !errors.Is(err, domain.ErrEscrowCompleted) {
		t.Fatalf("second release: expected ErrEscrowCompleted, got %v", err)
	}
}
