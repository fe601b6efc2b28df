package service

import (
	"errors"
	"testing"

	"github.com/propchain/marketd/internal/domain"
)

func TestInitializeDefaultsAndRepeat(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.admin.GetState(env.ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st.FeeBps != domain.DefaultFeeBps {
		t.Errorf("fee = %d, want default %d", st.FeeBps, domain.DefaultFeeBps)
	}
	if st.Admin != adminActor || st.Treasury != treasuryActor {
		t.Errorf("admin=%s treasury=%s", st.Admin, st.Treasury)
	}

	if _, err := env.admin.Initialize(env.ctx, bob, bob, 0); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("second init: expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestFeeCap(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.admin.Initialize(env.ctx, bob, bob, domain.MaxFeeBps+1); !errors.Is(err, domain.ErrInvalidFee) {
		t.Fatalf("init over cap: expected ErrInvalidFee, got %v", err)
	}

	over := domain.MaxFeeBps + 1
	if _, err := env.admin.UpdateSettings(env.ctx, adminActor, &over, nil); !errors.Is(err, domain.ErrInvalidFee) {
		t.Fatalf("update over cap: expected ErrInvalidFee, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.admin.UpdateSettings(env.ctx, bob, nil, nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin: expected ErrUnauthorized, got %v", err)
	}

	newFee := uint64(500)
	st, err := env.admin.UpdateSettings(env.ctx, adminActor, &newFee, nil)
	if err != nil {
		t.Fatalf("update fee: %v", err)
	}
	if st.FeeBps != 500 || st.Treasury != treasuryActor {
		t.Errorf("fee=%d treasury=%s, want 500/%s", st.FeeBps, st.Treasury, treasuryActor)
	}

	newTreasury := carol
	st, err = env.admin.UpdateSettings(env.ctx, adminActor, nil, &newTreasury)
	if err != nil {
		t.Fatalf("update treasury: %v", err)
	}
	if st.FeeBps != 500 || st.Treasury != carol {
		t.Errorf("fee=%d treasury=%s, want 500/%s", st.FeeBps, st.Treasury, carol)
	}
}

func TestCreditAccountAndBalance(t *testing.T) {
	env := newTestEnv(t)

	if err := env.admin.CreditAccount(env.ctx, bob, 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("zero credit: expected ErrInvalidAmount, got %v", err)
	}
	if err := env.admin.CreditAccount(env.ctx, bob, 42); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := env.balance(bob); got != 42 {
		t.Errorf("balance = %d, want 42", got)
	}
	// Unknown accounts read as zero.
	if got := env.balance(carol); got != 0 {
		t.Errorf("unknown balance = %d, want 0", got)
	}
}

func TestAuditTrailRecordsOperations(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)
	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}

	entries, err := env.admin.ListAuditLog(env.ctx, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(entries))
	}
	// Newest first.
	if entries[0].Event != "property_listed" || entries[2].Event != "marketplace_initialized" {
		t.Errorf("order: %s .. %s", entries[0].Event, entries[2].Event)
	}
}
