package history

import (
	"sort"
	"strings"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// Merge combines indexer-reconstructed orders with locally cached optimistic
// orders. Optimistic orders whose id the indexer has not reported yet are
// prepended most recent first; ids the indexer now knows are returned as
// confirmed so the caller can delete them from the cache. Merging the same
// inputs twice yields the same list (no duplicates).
func Merge(indexed, optimistic []domain.HistoryOrder) (merged []domain.HistoryOrder, confirmed []int64) {
	known := make(map[int64]bool, len(indexed))
	for _, o := range indexed {
		known[o.ID] = true
	}

	var pending []domain.HistoryOrder
	for _, o := range optimistic {
		if known[o.ID] {
			confirmed = append(confirmed, o.ID)
			continue
		}
		o.Optimistic = true
		pending = append(pending, o)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})

	merged = make([]domain.HistoryOrder, 0, len(pending)+len(indexed))
	merged = append(merged, pending...)
	merged = append(merged, indexed...)
	return merged, confirmed
}

// FilterByExchange keeps orders whose exchange contract matches the currently
// configured exchange or one of the legacy deployments still allowed by the
// dapp config. Matching is case-insensitive.
func FilterByExchange(orders []domain.HistoryOrder, exchange string, legacy []string) []domain.HistoryOrder {
	allowed := func(addr string) bool {
		if strings.EqualFold(addr, exchange) {
			return true
		}
		for _, l := range legacy {
			if strings.EqualFold(addr, l) {
				return true
			}
		}
		return false
	}

	out := make([]domain.HistoryOrder, 0, len(orders))
	for _, o := range orders {
		if allowed(o.Exchange) {
			out = append(out, o)
		}
	}
	return out
}

// Buckets partitions orders by derived status. All is the union sorted by
// creation time descending.
func Buckets(orders []domain.HistoryOrder) domain.StatusBuckets {
	var b domain.StatusBuckets
	b.All = append(b.All, orders...)
	sort.Slice(b.All, func(i, j int) bool {
		return b.All[i].CreatedAt.After(b.All[j].CreatedAt)
	})

	for _, o := range b.All {
		switch o.Status {
		case domain.StatusOpen:
			b.Open = append(b.Open, o)
		case domain.StatusCompleted:
			b.Completed = append(b.Completed, o)
		case domain.StatusCanceled:
			b.Canceled = append(b.Canceled, o)
		case domain.StatusExpired:
			b.Expired = append(b.Expired, o)
		}
	}
	return b
}
