package service_test

import (
	"context"
	"sort"
	"sync"

	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

// memRecords is an in-memory RecordRepository.
type memRecords struct {
	mu      sync.Mutex
	records []model.Record
	err     error
}

var _ repo.RecordRepository = (*memRecords)(nil)

func (m *memRecords) Create(ctx context.Context, r *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *r)
	return nil
}

func (m *memRecords) ListNewestFirst(ctx context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.Record(nil), m.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (m *memRecords) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.Status]int64{}
	for _, r := range m.records {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *memRecords) all() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record(nil), m.records...)
}
