package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

const (
	adminActor    = domain.ActorID("0xadmin")
	treasuryActor = domain.ActorID("0xtreasury")
	alice         = domain.ActorID("0xalice")
	bob           = domain.ActorID("0xbob")
	carol         = domain.ActorID("0xcarol")
)

// testEnv wires every service against the in-memory store with a controllable
// clock. No cache, locks, or bus: the services treat those as optional.
type testEnv struct {
	t     *testing.T
	ctx   context.Context
	store *memStore
	clock time.Time

	admin   *AdminService
	listing *ListingService
	auction *AuctionService
	escrow  *EscrowService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		t:     t,
		ctx:   context.Background(),
		store: newMemStore(),
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	now := func() time.Time { return env.clock }

	env.admin = NewAdminService(env.store, nil, logger)
	env.listing = NewListingService(env.store, nil, nil, nil, logger)
	env.listing.nowFn = now
	env.auction = NewAuctionService(env.store, nil, nil, nil, logger)
	env.auction.nowFn = now
	env.escrow = NewEscrowService(env.store, nil, nil, nil, logger)
	env.escrow.nowFn = now

	if _, err := env.admin.Initialize(env.ctx, adminActor, treasuryActor, 0); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *testEnv) fund(actor domain.ActorID, amount uint64) {
	e.t.Helper()
	if err := e.admin.CreditAccount(e.ctx, actor, amount); err != nil {
		e.t.Fatalf("fund %s: %v", actor, err)
	}
}

func (e *testEnv) balance(actor domain.ActorID) uint64 {
	e.t.Helper()
	b, err := e.admin.GetBalance(e.ctx, actor)
	if err != nil {
		e.t.Fatalf("balance %s: %v", actor, err)
	}
	return b
}

func (e *testEnv) newProperty(owner domain.ActorID) domain.Property {
	e.t.Helper()
	p, err := e.listing.CreateProperty(e.ctx, owner, domain.PropertyAttributes{
		Title:        "Hillside Cottage",
		Description:  "Stone cottage with a view of the valley.",
		Location:     "4 Ridge Lane",
		PropertyType: "residential",
		SizeSqft:     900,
		Bedrooms:     2,
		Bathrooms:    1,
		YearBuilt:    1972,
	})
	if err != nil {
		e.t.Fatalf("create property: %v", err)
	}
	return p
}

func (e *testEnv) assetOwner(token string) domain.ActorID {
	return e.store.st.assets[token]
}
