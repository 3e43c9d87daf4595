package quality

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps disposition records in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]DispositionRecord
}

// NewMemoryRepository constructs an empty disposition store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]DispositionRecord)}
}

func (r *MemoryRepository) Insert(ctx context.Context, record DispositionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.LotNo]; ok {
		return ErrAlreadyDisposed
	}
	r.records[record.LotNo] = record
	return nil
}

func (r *MemoryRepository) Remove(ctx context.Context, lotNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, lotNo)
	return nil
}

func (r *MemoryRepository) ByLot(ctx context.Context, lotNo string) (DispositionRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[lotNo]
	return record, ok, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]DispositionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DispositionRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckedAt.Equal(out[j].CheckedAt) {
			return out[i].CheckedAt.Before(out[j].CheckedAt)
		}
		return out[i].LotNo < out[j].LotNo
	})
	return out, nil
}
