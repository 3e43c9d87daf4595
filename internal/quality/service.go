package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/procurement"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

// RepositoryPort stores disposition records, one per lot. Insert fails with
// ErrAlreadyDisposed when the lot is claimed; Remove releases a claim whose
// ledger update could not be applied.
type RepositoryPort interface {
	Insert(ctx context.Context, record DispositionRecord) error
	Remove(ctx context.Context, lotNo string) error
	ByLot(ctx context.Context, lotNo string) (DispositionRecord, bool, error)
	List(ctx context.Context) ([]DispositionRecord, error)
}

// LotPort resolves received lots from the procurement register.
type LotPort interface {
	FindLot(ctx context.Context, lotNo string) (procurement.Lot, error)
	ListLots(ctx context.Context) ([]procurement.Lot, error)
}

// LedgerPort re-partitions stock buckets after a disposition.
type LedgerPort interface {
	Reclassify(ctx context.Context, input inventory.ReclassifyInput) (inventory.LedgerEntry, error)
}

// Service runs QA dispositions over received lots.
type Service struct {
	repo   RepositoryPort
	lots   LotPort
	ledger LedgerPort
	events shared.Recorder
	logger *slog.Logger
}

// NewService constructs the quality service. Events are optional.
func NewService(repo RepositoryPort, lots LotPort, ledger LedgerPort, events shared.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, lots: lots, ledger: ledger, events: events, logger: logger}
}

// DisposeInput is one disposition decision for a lot.
type DisposeInput struct {
	LotNo            string
	PassQty          float64
	DamageQty        float64
	ShelfLifeFailQty float64
	ExpiryFailQty    float64
	Remark           string
}

// DisposeLot records the QA outcome for a lot and re-partitions the stock
// entry. The outcome quantities must sum to the lot quantity exactly; a lot
// can be disposed once.
func (s *Service) DisposeLot(ctx context.Context, input DisposeInput) (DispositionRecord, error) {
	if strings.TrimSpace(input.Remark) == "" {
		return DispositionRecord{}, fmt.Errorf("%w: remark required", ErrValidation)
	}
	if input.PassQty < 0 || input.DamageQty < 0 || input.ShelfLifeFailQty < 0 || input.ExpiryFailQty < 0 {
		return DispositionRecord{}, fmt.Errorf("%w: quantities must be >= 0", ErrValidation)
	}
	lot, err := s.lots.FindLot(ctx, input.LotNo)
	if err != nil {
		return DispositionRecord{}, err
	}
	if _, found, err := s.repo.ByLot(ctx, input.LotNo); err != nil {
		return DispositionRecord{}, err
	} else if found {
		return DispositionRecord{}, ErrAlreadyDisposed
	}
	record := DispositionRecord{
		ID:               uuid.NewString(),
		LotNo:            lot.LotNo,
		ItemCode:         lot.ItemCode,
		Description:      lot.Description,
		LotQty:           lot.Quantity,
		Unit:             lot.Unit,
		PassQty:          input.PassQty,
		DamageQty:        input.DamageQty,
		ShelfLifeFailQty: input.ShelfLifeFailQty,
		ExpiryFailQty:    input.ExpiryFailQty,
		Remark:           strings.TrimSpace(input.Remark),
		CheckedAt:        time.Now().UTC(),
	}
	// Exact equality: partial or padded dispositions are refused outright.
	if record.PassQty+record.FailedQty() != lot.Quantity {
		return DispositionRecord{}, fmt.Errorf("%w: got %.4f, lot holds %.4f %s",
			ErrQuantityMismatch, record.PassQty+record.FailedQty(), lot.Quantity, lot.Unit)
	}

	// Insert first: the record claims the lot, so a concurrent or retried
	// disposition fails before the ledger is touched and the pass fraction
	// can never be applied twice.
	if err := s.repo.Insert(ctx, record); err != nil {
		return DispositionRecord{}, err
	}
	if _, err := s.ledger.Reclassify(ctx, inventory.ReclassifyInput{
		ItemCode:   lot.ItemCode,
		Unit:       lot.Unit,
		PassQty:    record.PassQty,
		DamagedQty: record.FailedQty(),
		RefLot:     lot.LotNo,
	}); err != nil {
		// Release the claim so the lot stays disposable.
		if removeErr := s.repo.Remove(ctx, record.LotNo); removeErr != nil {
			s.logger.Error("release disposition claim",
				slog.String("lot_no", record.LotNo),
				slog.Any("error", removeErr))
		}
		return DispositionRecord{}, fmt.Errorf("quality: ledger reclassify for lot %s: %w", lot.LotNo, err)
	}

	s.record(ctx, shared.Event{
		Kind:     shared.EventQADisposed,
		Entity:   "lot",
		EntityID: lot.LotNo,
		Payload: map[string]any{
			"item_code":   lot.ItemCode,
			"unit":        lot.Unit,
			"lot_no":      lot.LotNo,
			"pass_qty":    record.PassQty,
			"damaged_qty": record.FailedQty(),
		},
	})
	s.logger.Info("lot disposed",
		slog.String("lot_no", lot.LotNo),
		slog.String("item_code", lot.ItemCode),
		slog.Float64("pass_qty", record.PassQty),
		slog.Float64("failed_qty", record.FailedQty()))
	return record, nil
}

// PendingLots lists received lots without a disposition yet, oldest first.
func (s *Service) PendingLots(ctx context.Context) ([]procurement.Lot, error) {
	lots, err := s.lots.ListLots(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	disposed := make(map[string]struct{}, len(records))
	for _, record := range records {
		disposed[record.LotNo] = struct{}{}
	}
	pending := make([]procurement.Lot, 0, len(lots))
	for _, lot := range lots {
		if _, ok := disposed[lot.LotNo]; !ok {
			pending = append(pending, lot)
		}
	}
	return pending, nil
}

// ListDispositions returns every disposition in check order.
func (s *Service) ListDispositions(ctx context.Context) ([]DispositionRecord, error) {
	return s.repo.List(ctx)
}

func (s *Service) record(ctx context.Context, evt shared.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, evt); err != nil {
		s.logger.Warn("record quality event", slog.Any("error", err))
	}
}
