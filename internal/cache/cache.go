package cache

import (
	"context"
	"time"
)

// SentStore remembers the provider id of a record that was sent.
type SentStore interface {
	StoreSent(ctx context.Context, recordID int64, providerMessageID string, sentAt time.Time) error
}
