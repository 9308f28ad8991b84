package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/history"
)

const testExchange = "0x25a0A78f5ad07b2474D3D42F1c1432178465936d"

func sixDecimals(context.Context) history.DecimalsFunc {
	return func(string) (int32, bool) { return 6, true }
}

type historyFixture struct {
	svc        *HistoryService
	indexer    *fakeIndexer
	optimistic *fakeOptimistic
	store      *fakeOrderStore
	fills      *fakeFillStore
	archiver   *fakeArchiver
	bus        *fakeBus
	notifier   *fakeNotifier
}

func newHistoryFixture(pageSize int) *historyFixture {
	f := &historyFixture{
		indexer: &fakeIndexer{
			fills:    make(map[int64]domain.RawFillTotals),
			statuses: make(map[int64]domain.RawStatus),
		},
		optimistic: newFakeOptimistic(),
		store:      newFakeOrderStore(),
		fills:      newFakeFillStore(),
		archiver:   &fakeArchiver{},
		bus:        newFakeBus(),
		notifier:   &fakeNotifier{},
	}
	f.svc = NewHistoryService(
		f.indexer, f.optimistic, f.store, f.fills, f.archiver,
		f.bus, f.notifier,
		HistoryConfig{
			ChainID:  137,
			Exchange: testExchange,
			PageSize: pageSize,
		},
		sixDecimals,
		discardLogger(),
	)
	return f
}

func rawOrder(id int64, deadline time.Time) domain.RawOrderCreated {
	return domain.RawOrderCreated{
		ID:              id,
		ChainID:         137,
		Exchange:        testExchange,
		Maker:           testMaker,
		SrcTokenAddress: testUSDC.Address,
		DstTokenAddress: testWETH.Address,
		SrcAmount:       "1000000000",
		SrcBidAmount:    "50000000",
		DstMinAmount:    "1",
		Deadline:        deadline.Unix(),
		CreatedAt:       deadline.Add(-24 * time.Hour).Unix(),
	}
}

func TestOrdersForMergesOptimistic(t *testing.T) {
	f := newHistoryFixture(10)
	future := time.Now().Add(24 * time.Hour)

	f.indexer.orders = []domain.RawOrderCreated{
		rawOrder(1, future),
		rawOrder(2, future),
	}
	f.indexer.fills[1] = domain.RawFillTotals{OrderID: 1, SrcFilledAmount: "1000000000", DstAmountOut: "500000000000000000"}

	// Order 2 is still cached optimistically even though the indexer now
	// reports it; order 3 is not indexed yet.
	ctx := context.Background()
	require.NoError(t, f.optimistic.Put(ctx, 137, domain.HistoryOrder{
		ID: 2, Exchange: testExchange, Maker: testMaker, Status: domain.StatusOpen, Optimistic: true,
	}))
	require.NoError(t, f.optimistic.Put(ctx, 137, domain.HistoryOrder{
		ID: 3, Exchange: testExchange, Maker: testMaker, Status: domain.StatusOpen, Optimistic: true,
		CreatedAt: time.Now(),
	}))

	buckets, err := f.svc.OrdersFor(ctx, testMaker)
	require.NoError(t, err)

	require.Len(t, buckets.All, 3)
	assert.Len(t, buckets.Completed, 1)
	assert.Len(t, buckets.Open, 2)

	// The fully filled order derives completed.
	assert.Equal(t, domain.StatusCompleted, buckets.Completed[0].Status)
	assert.Equal(t, int64(1), buckets.Completed[0].ID)

	// The confirmed optimistic entry is dropped; the unconfirmed one stays.
	pending, err := f.optimistic.List(ctx, 137)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].ID)
}

func TestOrdersForSkipsOtherMakersPending(t *testing.T) {
	f := newHistoryFixture(10)
	ctx := context.Background()
	require.NoError(t, f.optimistic.Put(ctx, 137, domain.HistoryOrder{
		ID: 9, Exchange: testExchange, Maker: "0x000000000000000000000000000000000000dEaD",
		Status: domain.StatusOpen, Optimistic: true,
	}))

	buckets, err := f.svc.OrdersFor(ctx, testMaker)
	require.NoError(t, err)
	assert.Empty(t, buckets.All)

	// The foreign entry is untouched.
	pending, err := f.optimistic.List(ctx, 137)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOrdersForPaginates(t *testing.T) {
	f := newHistoryFixture(2)
	future := time.Now().Add(24 * time.Hour)
	f.indexer.orders = []domain.RawOrderCreated{
		rawOrder(1, future),
		rawOrder(2, future),
		rawOrder(3, future),
	}

	buckets, err := f.svc.OrdersFor(context.Background(), testMaker)
	require.NoError(t, err)
	assert.Len(t, buckets.All, 3)
}

func TestOrdersForFiltersForeignExchange(t *testing.T) {
	f := newHistoryFixture(10)
	future := time.Now().Add(24 * time.Hour)
	foreign := rawOrder(7, future)
	foreign.Exchange = "0x000000000000000000000000000000000000bEEF"
	f.indexer.orders = []domain.RawOrderCreated{rawOrder(1, future), foreign}

	buckets, err := f.svc.OrdersFor(context.Background(), testMaker)
	require.NoError(t, err)
	require.Len(t, buckets.All, 1)
	assert.Equal(t, int64(1), buckets.All[0].ID)
}

func TestSyncOpenOrdersRecordsFillsAndCompletion(t *testing.T) {
	f := newHistoryFixture(10)
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	require.NoError(t, f.store.Create(ctx, domain.HistoryOrder{
		ID: 1, Maker: testMaker, Status: domain.StatusOpen,
		SrcAmount: "1000000000", SrcFilledAmount: "0", Deadline: future,
		SrcTokenAddress: testUSDC.Address, DstTokenAddress: testWETH.Address,
	}))
	require.NoError(t, f.store.Create(ctx, domain.HistoryOrder{
		ID: 2, Maker: testMaker, Status: domain.StatusOpen,
		SrcAmount: "1000000000", SrcFilledAmount: "0", Deadline: future,
	}))

	f.indexer.fills[1] = domain.RawFillTotals{OrderID: 1, SrcFilledAmount: "1000000000", DstAmountOut: "500000000000000000"}
	f.indexer.fills[2] = domain.RawFillTotals{OrderID: 2, SrcFilledAmount: "250000000", DstAmountOut: "125000000000000000"}

	require.NoError(t, f.svc.syncOpenOrders(ctx))

	// Both orders had fill movement persisted and published.
	t1, err := f.fills.GetTotals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1000000000", t1.SrcFilledAmount)
	t2, err := f.fills.GetTotals(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "250000000", t2.SrcFilledAmount)
	assert.Equal(t, 2, f.bus.count(FillsChannel))

	// Fully filled order 1 closes as completed; order 2 stays open.
	o1, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, o1.Status)
	o2, err := f.store.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, o2.Status)

	assert.Equal(t, []string{EventOrderCompleted}, f.notifier.events)
}

func TestSyncOpenOrdersExpiresPastDeadline(t *testing.T) {
	f := newHistoryFixture(10)
	ctx := context.Background()

	require.NoError(t, f.store.Create(ctx, domain.HistoryOrder{
		ID: 1, Maker: testMaker, Status: domain.StatusOpen,
		SrcAmount: "1000000000", SrcFilledAmount: "0",
		Deadline: time.Now().Add(-time.Hour),
	}))

	require.NoError(t, f.svc.syncOpenOrders(ctx))

	o, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, o.Status)
	assert.Empty(t, f.notifier.events, "expiry is not a completion notification")
}

func TestSyncOpenOrdersCanceledMarker(t *testing.T) {
	f := newHistoryFixture(10)
	ctx := context.Background()

	require.NoError(t, f.store.Create(ctx, domain.HistoryOrder{
		ID: 1, Maker: testMaker, Status: domain.StatusOpen,
		SrcAmount: "1000000000", SrcFilledAmount: "0",
		Deadline: time.Now().Add(24 * time.Hour),
	}))
	f.indexer.statuses[1] = domain.RawStatusCanceled

	require.NoError(t, f.svc.syncOpenOrders(ctx))

	o, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, o.Status)
}

func TestRunLoopRequiresStores(t *testing.T) {
	f := newHistoryFixture(10)
	svc := NewHistoryService(
		f.indexer, f.optimistic, nil, nil, nil, f.bus, nil,
		HistoryConfig{ChainID: 137, Exchange: testExchange},
		sixDecimals,
		discardLogger(),
	)
	require.Error(t, svc.RunLoop(context.Background(), time.Second))
}

func TestRunArchiveLoopSnapshotsCompleted(t *testing.T) {
	f := newHistoryFixture(10)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, f.store.Create(ctx, domain.HistoryOrder{
		ID: 1, Maker: testMaker, Status: domain.StatusCompleted,
		SrcAmount: "1000000000", SrcFilledAmount: "1000000000",
	}))

	require.NoError(t, f.svc.RunArchiveLoop(ctx, 20*time.Millisecond))

	f.archiver.mu.Lock()
	defer f.archiver.mu.Unlock()
	require.NotEmpty(t, f.archiver.archived)
	assert.Len(t, f.archiver.archived[0], 1)
}
