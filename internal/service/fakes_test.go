package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFeed scripts upstream price responses per token address.
type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]string
	err    error
	calls  int
}

func (f *fakeFeed) USDPrice(_ context.Context, addr string) (domain.USDPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.USDPrice{}, f.err
	}
	v, ok := f.prices[addr]
	if !ok {
		return domain.USDPrice{}, domain.ErrNotFound
	}
	return domain.USDPrice{Value: v}, nil
}

type cachedPrice struct {
	value string
	ts    time.Time
}

type fakePriceCache struct {
	mu      sync.Mutex
	entries map[string]cachedPrice
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{entries: make(map[string]cachedPrice)}
}

func (c *fakePriceCache) SetUSD(_ context.Context, addr, value string, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[addr] = cachedPrice{value: value, ts: ts}
	return nil
}

func (c *fakePriceCache) GetUSD(_ context.Context, addr string) (string, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[addr]
	if !ok {
		return "", time.Time{}, domain.ErrNotFound
	}
	return e.value, e.ts, nil
}

type fakeBalances struct {
	balances map[string]string
	err      error
}

func (b *fakeBalances) Balance(_ context.Context, token, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return b.balances[token], nil
}

type fakeSubmitter struct {
	receipt   domain.SubmitReceipt
	err       error
	cancelTx  string
	cancelErr error

	submitted []domain.SubmitParams
	canceled  []int64
}

func (s *fakeSubmitter) SubmitOrder(_ context.Context, p domain.SubmitParams) (domain.SubmitReceipt, error) {
	s.submitted = append(s.submitted, p)
	if s.err != nil {
		return domain.SubmitReceipt{}, s.err
	}
	return s.receipt, nil
}

func (s *fakeSubmitter) CancelOrder(_ context.Context, id int64) (string, error) {
	s.canceled = append(s.canceled, id)
	if s.cancelErr != nil {
		return "", s.cancelErr
	}
	return s.cancelTx, nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	return ch, nil
}

func (b *fakeBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

type fakeOptimistic struct {
	mu      sync.Mutex
	entries map[int64]domain.HistoryOrder
}

func newFakeOptimistic() *fakeOptimistic {
	return &fakeOptimistic{entries: make(map[int64]domain.HistoryOrder)}
}

func (c *fakeOptimistic) Put(_ context.Context, _ int64, order domain.HistoryOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[order.ID] = order
	return nil
}

func (c *fakeOptimistic) List(context.Context, int64) ([]domain.HistoryOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.HistoryOrder, 0, len(c.entries))
	for _, o := range c.entries {
		out = append(out, o)
	}
	return out, nil
}

func (c *fakeOptimistic) Delete(_ context.Context, _ int64, orderID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orderID)
	return nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[int64]domain.HistoryOrder
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[int64]domain.HistoryOrder)}
}

func (s *fakeOrderStore) Create(_ context.Context, order domain.HistoryOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id int64) (domain.HistoryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.HistoryOrder{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *fakeOrderStore) ListByMaker(_ context.Context, maker string, _ domain.ListOpts) ([]domain.HistoryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HistoryOrder
	for _, o := range s.orders {
		if o.Maker == maker {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) ListByStatus(_ context.Context, status domain.OrderStatus, _ domain.ListOpts) ([]domain.HistoryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HistoryOrder
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeFillStore struct {
	mu     sync.Mutex
	totals map[int64]domain.RawFillTotals
}

func newFakeFillStore() *fakeFillStore {
	return &fakeFillStore{totals: make(map[int64]domain.RawFillTotals)}
}

func (s *fakeFillStore) UpsertTotals(_ context.Context, t domain.RawFillTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[t.OrderID] = t
	return nil
}

func (s *fakeFillStore) GetTotals(_ context.Context, orderID int64) (domain.RawFillTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.totals[orderID]
	if !ok {
		return domain.RawFillTotals{}, domain.ErrNotFound
	}
	return t, nil
}

// fakeIndexer serves scripted raw records, paging FetchOrders the way the
// live subgraph does.
type fakeIndexer struct {
	orders    []domain.RawOrderCreated
	fills     map[int64]domain.RawFillTotals
	statuses  map[int64]domain.RawStatus
	block     int64
	ordersErr error
}

func (f *fakeIndexer) FetchOrders(_ context.Context, _ []string, _ string, first, skip int) ([]domain.RawOrderCreated, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	if skip >= len(f.orders) {
		return nil, nil
	}
	end := skip + first
	if end > len(f.orders) {
		end = len(f.orders)
	}
	return f.orders[skip:end], nil
}

func (f *fakeIndexer) FetchFillTotals(_ context.Context, ids []int64) ([]domain.RawFillTotals, error) {
	var out []domain.RawFillTotals
	for _, id := range ids {
		if t, ok := f.fills[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeIndexer) FetchStatuses(_ context.Context, ids []int64) (map[int64]domain.RawStatus, error) {
	out := make(map[int64]domain.RawStatus)
	for _, id := range ids {
		if s, ok := f.statuses[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeIndexer) LatestBlock(context.Context) (int64, error) {
	return f.block, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived [][]domain.HistoryOrder
	err      error
}

func (a *fakeArchiver) ArchiveCompleted(_ context.Context, orders []domain.HistoryOrder, asOf time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.archived = append(a.archived, orders)
	return fmt.Sprintf("history/%s.csv", asOf.Format("2006-01-02")), nil
}
