package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LeventeLantos/wa-relay/internal/model"
)

type SQLRecordStore struct {
	db *sqlx.DB
}

var _ RecordRepository = (*SQLRecordStore)(nil)

func NewSQLRecordStore(db *sqlx.DB) *SQLRecordStore {
	return &SQLRecordStore{db: db}
}

// Create inserts r as a single row and sets r.ID. Concurrent callers need no
// coordination beyond what the database gives a plain INSERT.
func (s *SQLRecordStore) Create(ctx context.Context, r *model.Record) error {
	if err := checkRecord(r); err != nil {
		return err
	}

	ts := r.Timestamp.UTC()
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO message_records (sender, receiver, content, timestamp, status)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), r.Sender, r.Receiver, r.Content, ts, string(r.Status)).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert message record: %w", err)
	}

	r.ID = id
	r.Timestamp = ts
	return nil
}

func (s *SQLRecordStore) ListNewestFirst(ctx context.Context) ([]model.Record, error) {
	var out []model.Record
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, sender, receiver, content, timestamp, status
		FROM message_records
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list message records: %w", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}

func (s *SQLRecordStore) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM message_records GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count message records: %w", err)
	}
	defer rows.Close()

	counts := map[model.Status]int64{model.Sent: 0, model.Received: 0, model.Failed: 0}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

func checkRecord(r *model.Record) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	case !r.Status.Valid():
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, r.Status)
	case r.Sender == "":
		return fmt.Errorf("%w: empty sender", ErrInvalidRecord)
	case r.Timestamp.IsZero():
		return fmt.Errorf("%w: zero timestamp", ErrInvalidRecord)
	case r.Timestamp.UTC().Year() > 9999:
		return fmt.Errorf("%w: timestamp %s past year 9999", ErrInvalidRecord, r.Timestamp.UTC().Format(time.RFC3339))
	}
	return nil
}
