package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// Archiver implements domain.Archiver: it exports settled auctions (with
// their bid history) and completed escrows to JSONL objects in cold storage.
//
// Archived rows are not deleted from the primary store here. Pruning is a
// separate, explicit step taken after the archive has been verified.
type Archiver struct {
	store  domain.Store
	writer domain.BlobWriter
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver returns an Archiver reading from store and uploading through
// writer.
func NewArchiver(store domain.Store, writer domain.BlobWriter) *Archiver {
	return &Archiver{store: store, writer: writer}
}

// auctionRecord is one archived auction together with its full bid history.
type auctionRecord struct {
	Auction domain.Auction `json:"auction"`
	Bids    []domain.Bid   `json:"bids"`
}

// ArchiveAuctions exports every settled auction that ended before the cutoff
// to archive/auctions/YYYY-MM.jsonl and records the export in the audit log.
// Returns the number of auctions archived.
func (a *Archiver) ArchiveAuctions(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := a.store.InTx(ctx, func(tx domain.Tx) error {
		auctions, err := tx.Auctions().ListEndedBefore(ctx, before)
		if err != nil {
			return fmt.Errorf("s3blob: query ended auctions: %w", err)
		}
		if len(auctions) == 0 {
			return nil
		}

		records := make([]auctionRecord, 0, len(auctions))
		for _, auc := range auctions {
			bids, err := tx.Bids().ListByAuction(ctx, auc.ID)
			if err != nil {
				return fmt.Errorf("s3blob: query bids for auction %d: %w", auc.ID, err)
			}
			records = append(records, auctionRecord{Auction: auc, Bids: bids})
		}

		buf, err := marshalJSONL(records)
		if err != nil {
			return fmt.Errorf("s3blob: marshal auctions: %w", err)
		}

		path := archivePath("auctions", before)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return fmt.Errorf("s3blob: upload auctions: %w", err)
		}

		count = int64(len(records))
		return tx.Audit().Log(ctx, "auctions_archived", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ArchiveEscrows exports every completed escrow created before the cutoff to
// archive/escrows/YYYY-MM.jsonl. Returns the number of escrows archived.
func (a *Archiver) ArchiveEscrows(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := a.store.InTx(ctx, func(tx domain.Tx) error {
		escrows, err := tx.Escrows().ListCompletedBefore(ctx, before)
		if err != nil {
			return fmt.Errorf("s3blob: query completed escrows: %w", err)
		}
		if len(escrows) == 0 {
			return nil
		}

		buf, err := marshalJSONL(escrows)
		if err != nil {
			return fmt.Errorf("s3blob: marshal escrows: %w", err)
		}

		path := archivePath("escrows", before)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return fmt.Errorf("s3blob: upload escrows: %w", err)
		}

		count = int64(len(escrows))
		return tx.Audit().Log(ctx, "escrows_archived", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// archivePath partitions archive objects by the year-month of the cutoff.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
