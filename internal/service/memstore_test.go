package service

import (
	"context"
	"sort"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// memState is the complete marketplace state held by the in-memory store.
// Transactions clone it, mutate the clone, and swap it in on commit, so a
// failed operation leaves the visible state untouched.
type memState struct {
	state      *domain.MarketplaceState
	properties map[uint64]domain.Property
	auctions   map[uint64]domain.Auction
	bids       []domain.Bid
	escrows    map[uint64]domain.Escrow
	balances   map[domain.ActorID]uint64
	assets     map[string]domain.ActorID
	audit      []domain.AuditEntry
}

func newMemState() *memState {
	return &memState{
		properties: map[uint64]domain.Property{},
		auctions:   map[uint64]domain.Auction{},
		escrows:    map[uint64]domain.Escrow{},
		balances:   map[domain.ActorID]uint64{},
		assets:     map[string]domain.ActorID{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	if s.state != nil {
		st := *s.state
		c.state = &st
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	c.bids = append(c.bids, s.bids...)
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	c.audit = append(c.audit, s.audit...)
	return c
}

// memStore implements domain.Store over memState with commit/rollback.
type memStore struct {
	st *memState
}

func newMemStore() *memStore {
	return &memStore{st: newMemState()}
}

func (m *memStore) InTx(_ context.Context, fn func(tx domain.Tx) error) error {
	working := m.st.clone()
	if err := fn(&memTx{s: working}); err != nil {
		return err
	}
	m.st = working
	return nil
}

func (m *memStore) View() domain.Tx {
	return &memTx{s: m.st}
}

type memTx struct {
	s *memState
}

func (t *memTx) State() domain.StateStore        { return (*memStateStore)(t) }
func (t *memTx) Properties() domain.PropertyStore { return (*memPropertyStore)(t) }
func (t *memTx) Auctions() domain.AuctionStore   { return (*memAuctionStore)(t) }
func (t *memTx) Bids() domain.BidStore           { return (*memBidStore)(t) }
func (t *memTx) Escrows() domain.EscrowStore     { return (*memEscrowStore)(t) }
func (t *memTx) Ledger() domain.Ledger           { return (*memLedger)(t) }
func (t *memTx) Audit() domain.AuditStore        { return (*memAuditStore)(t) }

type memStateStore memTx

func (s *memStateStore) Get(context.Context) (domain.MarketplaceState, error) {
	if s.s.state == nil {
		return domain.MarketplaceState{}, domain.ErrNotFound
	}
	return *s.s.state, nil
}

func (s *memStateStore) Init(_ context.Context, st domain.MarketplaceState) error {
	if s.s.state != nil {
		return domain.ErrAlreadyInitialized
	}
	s.s.state = &st
	return nil
}

func (s *memStateStore) Update(_ context.Context, st domain.MarketplaceState) error {
	if s.s.state == nil {
		return domain.ErrNotFound
	}
	s.s.state = &st
	return nil
}

type memPropertyStore memTx

func (s *memPropertyStore) Create(_ context.Context, p domain.Property) error {
	s.s.properties[p.ID] = p
	return nil
}

func (s *memPropertyStore) Get(_ context.Context, id uint64) (domain.Property, error) {
	p, ok := s.s.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memPropertyStore) Update(_ context.Context, p domain.Property) error {
	if _, ok := s.s.properties[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.s.properties[p.ID] = p
	return nil
}

func (s *memPropertyStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range s.s.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

func (s *memPropertyStore) ListByOwner(_ context.Context, owner domain.ActorID, opts domain.ListOpts) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range s.s.properties {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts), nil
}

type memAuctionStore memTx

func (s *memAuctionStore) Create(_ context.Context, a domain.Auction) error {
	s.s.auctions[a.ID] = a
	return nil
}

func (s *memAuctionStore) Get(_ context.Context, id uint64) (domain.Auction, error) {
	a, ok := s.s.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *memAuctionStore) Update(_ context.Context, a domain.Auction) error {
	if _, ok := s.s.auctions[a.ID]; !ok {
		return domain.ErrNotFound
	}
	s.s.auctions[a.ID] = a
	return nil
}

func (s *memAuctionStore) ListOpen(_ context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	var out []domain.Auction
	for _, a := range s.s.auctions {
		if !a.Ended {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return paginate(out, opts), nil
}

func (s *memAuctionStore) OpenByProperty(_ context.Context, propertyID uint64) (domain.Auction, error) {
	for _, a := range s.s.auctions {
		if a.PropertyID == propertyID && !a.Ended {
			return a, nil
		}
	}
	return domain.Auction{}, domain.ErrNotFound
}

func (s *memAuctionStore) ListEndedBefore(_ context.Context, before time.Time) ([]domain.Auction, error) {
	var out []domain.Auction
	for _, a := range s.s.auctions {
		if a.Ended && a.EndTime.Before(before) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBidStore memTx

func (s *memBidStore) Create(_ context.Context, b domain.Bid) error {
	s.s.bids = append(s.s.bids, b)
	return nil
}

func (s *memBidStore) ListByAuction(_ context.Context, auctionID uint64) ([]domain.Bid, error) {
	var out []domain.Bid
	for _, b := range s.s.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *memBidStore) ClearWinning(_ context.Context, auctionID uint64) error {
	for i := range s.s.bids {
		if s.s.bids[i].AuctionID == auctionID {
			s.s.bids[i].IsWinning = false
		}
	}
	return nil
}

type memEscrowStore memTx

func (s *memEscrowStore) Create(_ context.Context, e domain.Escrow) error {
	s.s.escrows[e.ID] = e
	return nil
}

func (s *memEscrowStore) Get(_ context.Context, id uint64) (domain.Escrow, error) {
	e, ok := s.s.escrows[id]
	if !ok {
		return domain.Escrow{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *memEscrowStore) Update(_ context.Context, e domain.Escrow) error {
	if _, ok := s.s.escrows[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.s.escrows[e.ID] = e
	return nil
}

func (s *memEscrowStore) ListCompletedBefore(_ context.Context, before time.Time) ([]domain.Escrow, error) {
	var out []domain.Escrow
	for _, e := range s.s.escrows {
		if e.Completed && e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memLedger memTx

func (l *memLedger) Credit(_ context.Context, account domain.ActorID, amount uint64) error {
	l.s.balances[account] += amount
	return nil
}

func (l *memLedger) Balance(_ context.Context, account domain.ActorID) (uint64, error) {
	return l.s.balances[account], nil
}

func (l *memLedger) TransferValue(_ context.Context, from, to domain.ActorID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if l.s.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}
	l.s.balances[from] -= amount
	l.s.balances[to] += amount
	return nil
}

func (l *memLedger) RegisterAsset(_ context.Context, tokenID string, owner domain.ActorID) error {
	if _, ok := l.s.assets[tokenID]; ok {
		return domain.ErrConflict
	}
	l.s.assets[tokenID] = owner
	return nil
}

func (l *memLedger) TransferAsset(_ context.Context, tokenID string, from, to domain.ActorID) error {
	if l.s.assets[tokenID] != from {
		return domain.ErrUnauthorized
	}
	l.s.assets[tokenID] = to
	return nil
}

type memAuditStore memTx

func (s *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.s.audit = append(s.s.audit, domain.AuditEntry{
		ID:     int64(len(s.s.audit) + 1),
		Event:  event,
		Detail: detail,
	})
	return nil
}

func (s *memAuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	out := make([]domain.AuditEntry, len(s.s.audit))
	copy(out, s.s.audit)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, opts), nil
}

func paginate[T any](in []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(in) {
			return nil
		}
		in = in[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(in) {
		in = in[:opts.Limit]
	}
	return in
}
