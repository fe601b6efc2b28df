package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/propchain/marketd/internal/domain"
)

func TestCreatePropertyAssignsIDsAndRegistersAsset(t *testing.T) {
	env := newTestEnv(t)

	p1 := env.newProperty(alice)
	p2 := env.newProperty(alice)

	if p1.ID != 1 || p2.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", p1.ID, p2.ID)
	}
	if p1.ListingState != domain.ListingNone {
		t.Errorf("new property state = %s, want %s", p1.ListingState, domain.ListingNone)
	}
	if got := env.assetOwner(p1.AssetToken); got != alice {
		t.Errorf("asset owner = %s, want %s", got, alice)
	}
}

func TestCreatePropertyRejectsLongFields(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.listing.CreateProperty(env.ctx, alice, domain.PropertyAttributes{
		Title: strings.Repeat("x", domain.MaxTitleLen+1),
	})
	if !errors.Is(err, domain.ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}

	// A rejected create must not consume a counter value.
	p := env.newProperty(alice)
	if p.ID != 1 {
		t.Errorf("first valid property got id %d, want 1", p.ID)
	}
}

func TestListPropertyGuards(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	tests := []struct {
		name    string
		caller  domain.ActorID
		mode    domain.ListingMode
		price   uint64
		wantErr error
	}{
		{"not owner", bob, domain.ListingModeDirect, domain.MinListingPrice, domain.ErrNotOwner},
		{"bad mode", alice, domain.ListingMode("raffle"), domain.MinListingPrice, domain.ErrInvalidMode},
		{"price too low", alice, domain.ListingModeDirect, domain.MinListingPrice - 1, domain.ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.listing.ListProperty(env.ctx, tt.caller, p.ID, tt.mode, tt.price)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); !errors.Is(err, domain.ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
}

func TestListCancelRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	listed, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, 2_000_000_000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listed.ListingState != domain.ListingDirect || listed.ListPrice != 2_000_000_000 {
		t.Fatalf("listed state = %s price = %d", listed.ListingState, listed.ListPrice)
	}

	cancelled, err := env.listing.CancelListing(env.ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.ListingState != domain.ListingNone || cancelled.ListPrice != 0 {
		t.Errorf("after cancel state = %s price = %d, want not_listed/0", cancelled.ListingState, cancelled.ListPrice)
	}

	if _, err := env.listing.CancelListing(env.ctx, alice, p.ID); !errors.Is(err, domain.ErrNotListed) {
		t.Errorf("second cancel: expected ErrNotListed, got %v", err)
	}
}

func TestBuyDirectScenario(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	const price = uint64(1_000_000_000)
	env.fund(bob, price)

	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, price); err != nil {
		t.Fatalf("list: %v", err)
	}

	sold, err := env.listing.BuyDirect(env.ctx, bob, p.ID)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	if sold.Owner != bob {
		t.Errorf("owner = %s, want %s", sold.Owner, bob)
	}
	if sold.ListingState != domain.ListingNone {
		t.Errorf("state = %s, want %s", sold.ListingState, domain.ListingNone)
	}
	// 2.5% platform fee on 1e9.
	if got := env.balance(treasuryActor); got != 25_000_000 {
		t.Errorf("treasury = %d, want 25000000", got)
	}
	if got := env.balance(alice); got != 975_000_000 {
		t.Errorf("seller = %d, want 975000000", got)
	}
	if got := env.balance(bob); got != 0 {
		t.Errorf("buyer = %d, want 0", got)
	}
	if got := env.assetOwner(p.AssetToken); got != bob {
		t.Errorf("asset owner = %s, want %s", got, bob)
	}
}

func TestBuyDirectGuards(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	if _, err := env.listing.BuyDirect(env.ctx, bob, p.ID); !errors.Is(err, domain.ErrNotListed) {
		t.Fatalf("unlisted: expected ErrNotListed, got %v", err)
	}

	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := env.listing.BuyDirect(env.ctx, alice, p.ID); !errors.Is(err, domain.ErrSelfTrade) {
		t.Fatalf("self trade: expected ErrSelfTrade, got %v", err)
	}
}

func TestBuyDirectInsufficientFundsLeavesNoPartialState(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProperty(alice)

	if _, err := env.listing.ListProperty(env.ctx, alice, p.ID, domain.ListingModeDirect, domain.MinListingPrice); err != nil {
		t.Fatalf("list: %v", err)
	}
	env.fund(bob, domain.MinListingPrice/2)

	_, err := env.listing.BuyDirect(env.ctx, bob, p.ID)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	got, err := env.listing.GetProperty(env.ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != alice || got.ListingState != domain.ListingDirect {
		t.Errorf("property mutated by failed buy: owner=%s state=%s", got.Owner, got.ListingState)
	}
	if env.balance(bob) != domain.MinListingPrice/2 {
		t.Errorf("buyer balance changed by failed buy: %d", env.balance(bob))
	}
	if env.balance(alice) != 0 {
		t.Errorf("seller balance changed by failed buy: %d", env.balance(alice))
	}
	if env.assetOwner(p.AssetToken) != alice {
		t.Errorf("asset moved by failed buy")
	}
}
