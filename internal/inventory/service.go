package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

// RepositoryPort abstracts ledger storage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Snapshot(ctx context.Context) ([]LedgerEntry, error)
	EntriesByItem(ctx context.Context, itemCode string) ([]LedgerEntry, error)
}

// Service owns all read-modify-write sequences against the stock ledger.
// Callers never touch entries directly; the repository serialises access per
// spec of the store (mutex for memory, repeatable-read tx for Postgres).
type Service struct {
	repo   RepositoryPort
	events shared.Recorder
	cache  *SnapshotCache
	logger *slog.Logger
}

// NewService builds the ledger service. Events and cache are optional.
func NewService(repo RepositoryPort, events shared.Recorder, cache *SnapshotCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, events: events, cache: cache, logger: logger}
}

// PostInbound folds a received lot into the ledger at the PO item rate. All
// received quantity is optimistically classified good pending QA.
func (s *Service) PostInbound(ctx context.Context, input InboundInput) (LedgerEntry, error) {
	if strings.TrimSpace(input.ItemCode) == "" || strings.TrimSpace(input.Unit) == "" {
		return LedgerEntry{}, errors.New("inventory: item code and unit required")
	}
	if input.Qty <= 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	if input.Rate < 0 {
		return LedgerEntry{}, ErrInvalidRate
	}
	var updated LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.ItemCode, input.Unit)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		if errors.Is(err, ErrEntryNotFound) {
			entry = LedgerEntry{ItemCode: input.ItemCode, Description: input.Description, Unit: input.Unit}
		}
		if entry.Description == "" {
			entry.Description = input.Description
		}
		updated = applyInbound(entry, input.Qty, input.Rate)
		return tx.UpsertEntry(ctx, updated)
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.invalidateSnapshot(ctx)
	return updated, nil
}

// Reclassify applies a QA disposition outcome to the entry: good stock
// becomes the passed quantity, everything failed moves to the damaged bucket
// and the value is reallocated proportionally.
func (s *Service) Reclassify(ctx context.Context, input ReclassifyInput) (LedgerEntry, error) {
	if input.PassQty < 0 || input.DamagedQty < 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	if input.PassQty+input.DamagedQty <= 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	var updated LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.ItemCode, input.Unit)
		if err != nil {
			return err
		}
		updated = applyReclassify(entry, input.PassQty, input.DamagedQty)
		return tx.UpsertEntry(ctx, updated)
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.invalidateSnapshot(ctx)
	return updated, nil
}

// Issue debits good stock for consumption. Damaged stock is never issuable,
// and the weighted average price is preserved as the disposal rate.
func (s *Service) Issue(ctx context.Context, input IssueInput) (LedgerEntry, error) {
	if input.Qty <= 0 {
		return LedgerEntry{}, ErrInsufficientStock
	}
	unit := input.Unit
	if unit == "" {
		entries, err := s.repo.EntriesByItem(ctx, input.ItemCode)
		if err != nil {
			return LedgerEntry{}, err
		}
		switch len(entries) {
		case 0:
			return LedgerEntry{}, ErrInsufficientStock
		case 1:
			unit = entries[0].Unit
		default:
			return LedgerEntry{}, ErrAmbiguousUnit
		}
	}
	var updated LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.ItemCode, unit)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				return ErrInsufficientStock
			}
			return err
		}
		if input.Qty > entry.GoodQty {
			return ErrInsufficientStock
		}
		updated = applyIssue(entry, input.Qty)
		return tx.UpsertEntry(ctx, updated)
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.invalidateSnapshot(ctx)
	s.record(ctx, shared.Event{
		Kind:     shared.EventStockIssued,
		Entity:   "ledger",
		EntityID: input.ItemCode,
		Payload: map[string]any{
			"item_code": input.ItemCode,
			"unit":      unit,
			"qty":       input.Qty,
		},
	})
	return updated, nil
}

// Snapshot lists all ledger entries ordered by item code then unit.
func (s *Service) Snapshot(ctx context.Context) ([]LedgerEntry, error) {
	if s.cache != nil {
		return s.cache.Fetch(ctx, func(ctx context.Context) ([]LedgerEntry, error) {
			return s.repo.Snapshot(ctx)
		})
	}
	return s.repo.Snapshot(ctx)
}

func (s *Service) invalidateSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate snapshot cache", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, evt shared.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, evt); err != nil {
		s.logger.Warn("record ledger event", slog.Any("error", err))
	}
}
