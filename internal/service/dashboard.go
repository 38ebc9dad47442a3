package service

import (
	"context"
	"log/slog"

	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

// SentLookup resolves cached provider message ids by record id.
type SentLookup interface {
	LookupSent(ctx context.Context, recordIDs []int64) (map[int64]string, error)
}

// Entry is a dashboard row. ProviderMessageID is set only for sent records
// whose id is still cached.
type Entry struct {
	model.Record
	ProviderMessageID string
}

type Dashboard struct {
	records repo.RecordRepository
	sent    SentLookup
}

func NewDashboard(records repo.RecordRepository) *Dashboard {
	return &Dashboard{records: records}
}

// WithSentLookup attaches provider ids to sent rows returned by ListEntries.
func (d *Dashboard) WithSentLookup(l SentLookup) *Dashboard {
	d.sent = l
	return d
}

// ListRecords returns every record, newest first.
func (d *Dashboard) ListRecords(ctx context.Context) ([]model.Record, error) {
	return d.records.ListNewestFirst(ctx)
}

// ListEntries is ListRecords plus provider ids. A failed lookup is logged and
// leaves the ids empty.
func (d *Dashboard) ListEntries(ctx context.Context) ([]Entry, error) {
	recs, err := d.records.ListNewestFirst(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(recs))
	var sentIDs []int64
	for i, rec := range recs {
		entries[i] = Entry{Record: rec}
		if rec.Status == model.Sent && rec.ID != 0 {
			sentIDs = append(sentIDs, rec.ID)
		}
	}
	if d.sent == nil || len(sentIDs) == 0 {
		return entries, nil
	}

	ids, err := d.sent.LookupSent(ctx, sentIDs)
	if err != nil {
		slog.Warn("provider id lookup failed", "err", err)
		return entries, nil
	}
	for i := range entries {
		if entries[i].Status == model.Sent {
			entries[i].ProviderMessageID = ids[entries[i].ID]
		}
	}
	return entries, nil
}
