package s3blob

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// HistoryArchiver snapshots completed orders into timestamped CSV objects.
// Snapshots are additive; pruning archived rows from the primary store is a
// separate, explicit step run only after an archive has been verified.
type HistoryArchiver struct {
	writer  domain.BlobWriter
	chainID int64
}

// NewHistoryArchiver creates a HistoryArchiver writing through the given
// blob writer.
func NewHistoryArchiver(writer domain.BlobWriter, chainID int64) *HistoryArchiver {
	return &HistoryArchiver{writer: writer, chainID: chainID}
}

// csvHeader is the column layout of an archive snapshot.
var csvHeader = []string{
	"order_id", "chain_id", "exchange", "maker",
	"src_token", "dst_token",
	"src_amount", "src_bid_amount", "dst_min_amount",
	"src_filled_amount", "dst_amount_out",
	"total_chunks", "fill_delay_seconds",
	"status", "created_at", "deadline", "tx_hash",
}

// ArchiveCompleted serializes the given orders to CSV and uploads the
// snapshot under history/{chainID}/{date}/completed-{timestamp}.csv. It
// returns the object key.
func (a *HistoryArchiver) ArchiveCompleted(ctx context.Context, orders []domain.HistoryOrder, asOf time.Time) (string, error) {
	if len(orders) == 0 {
		return "", fmt.Errorf("s3blob: nothing to archive")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("s3blob: write csv header: %w", err)
	}
	for _, o := range orders {
		row := []string{
			strconv.FormatInt(o.ID, 10),
			strconv.FormatInt(o.ChainID, 10),
			o.Exchange,
			o.Maker,
			o.SrcTokenAddress,
			o.DstTokenAddress,
			o.SrcAmount,
			o.SrcBidAmount,
			o.DstMinAmount,
			o.SrcFilledAmount,
			o.DstAmountOut,
			strconv.FormatInt(o.TotalChunks, 10),
			strconv.FormatInt(o.FillDelaySeconds, 10),
			string(o.Status),
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.Deadline.UTC().Format(time.RFC3339),
			o.TxHash,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("s3blob: write csv row for order %d: %w", o.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("s3blob: flush csv: %w", err)
	}

	key := fmt.Sprintf("history/%d/%s/completed-%d.csv",
		a.chainID, asOf.Format("2006-01-02"), asOf.Unix())

	if err := a.writer.Put(ctx, key, &buf, "text/csv"); err != nil {
		return "", err
	}
	return key, nil
}
