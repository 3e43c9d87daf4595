package inventory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps the ledger in process memory. It is the default
// store for the engine: a single mutex serialises every command so that no
// read-modify-write sequence can interleave with another.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]LedgerEntry
}

// NewMemoryRepository constructs an empty ledger store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]LedgerEntry)}
}

type memoryTx struct {
	repo *MemoryRepository
}

func entryKey(itemCode, unit string) string {
	return itemCode + "\x00" + unit
}

// WithTx runs fn under the store mutex. Services validate before mutating,
// so a failed fn leaves no partial state behind.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

// Snapshot returns all entries ordered by item code then unit.
func (r *MemoryRepository) Snapshot(ctx context.Context) ([]LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LedgerEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sortEntries(out)
	return out, nil
}

// EntriesByItem returns entries for one item code ordered by unit.
func (r *MemoryRepository) EntriesByItem(ctx context.Context, itemCode string) ([]LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LedgerEntry
	for _, entry := range r.entries {
		if entry.ItemCode == itemCode {
			out = append(out, entry)
		}
	}
	sortEntries(out)
	return out, nil
}

func (tx *memoryTx) GetEntryForUpdate(ctx context.Context, itemCode, unit string) (LedgerEntry, error) {
	if entry, ok := tx.repo.entries[entryKey(itemCode, unit)]; ok {
		return entry, nil
	}
	return LedgerEntry{ItemCode: itemCode, Unit: unit}, ErrEntryNotFound
}

func (tx *memoryTx) UpsertEntry(ctx context.Context, entry LedgerEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	tx.repo.entries[entryKey(entry.ItemCode, entry.Unit)] = entry
	return nil
}

func sortEntries(entries []LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ItemCode != entries[j].ItemCode {
			return entries[i].ItemCode < entries[j].ItemCode
		}
		return entries[i].Unit < entries[j].Unit
	})
}
