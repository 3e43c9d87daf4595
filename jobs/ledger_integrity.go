package jobs

import (
	"context"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"

	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

// divergenceTolerance absorbs float noise between the folded log and the
// live ledger.
const divergenceTolerance = 1e-6

// SnapshotPort reads the live ledger.
type SnapshotPort interface {
	Snapshot(ctx context.Context) ([]inventory.LedgerEntry, error)
}

// NewLedgerIntegrityHandler builds the handler for TaskLedgerIntegrity. It
// rebuilds the ledger from the event log and logs every entry that diverges
// from the live state. Divergence is reported, never repaired.
func NewLedgerIntegrityHandler(events shared.Recorder, ledger SnapshotPort, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		log, err := events.List(ctx)
		if err != nil {
			return err
		}
		replayed := inventory.Replay(log)
		live, err := ledger.Snapshot(ctx)
		if err != nil {
			return err
		}

		byKey := make(map[string]inventory.LedgerEntry, len(replayed))
		for _, entry := range replayed {
			byKey[entry.ItemCode+"\x00"+entry.Unit] = entry
		}
		divergent := 0
		for _, entry := range live {
			expected, ok := byKey[entry.ItemCode+"\x00"+entry.Unit]
			delete(byKey, entry.ItemCode+"\x00"+entry.Unit)
			if !ok {
				divergent++
				logger.Error("ledger entry missing from replay",
					slog.String("item_code", entry.ItemCode),
					slog.String("unit", entry.Unit))
				continue
			}
			if entriesDiverge(entry, expected) {
				divergent++
				logger.Error("ledger entry diverges from event log",
					slog.String("item_code", entry.ItemCode),
					slog.String("unit", entry.Unit),
					slog.Float64("live_good_qty", entry.GoodQty),
					slog.Float64("replayed_good_qty", expected.GoodQty),
					slog.Float64("live_total_value", entry.TotalValue),
					slog.Float64("replayed_total_value", expected.TotalValue))
			}
		}
		for _, entry := range byKey {
			divergent++
			logger.Error("replayed entry missing from ledger",
				slog.String("item_code", entry.ItemCode),
				slog.String("unit", entry.Unit))
		}

		logger.Info("ledger integrity check finished",
			slog.Int("events", len(log)),
			slog.Int("entries", len(live)),
			slog.Int("divergent", divergent))
		return nil
	}
}

func entriesDiverge(a, b inventory.LedgerEntry) bool {
	return math.Abs(a.GoodQty-b.GoodQty) > divergenceTolerance ||
		math.Abs(a.DamagedQty-b.DamagedQty) > divergenceTolerance ||
		math.Abs(a.TotalValue-b.TotalValue) > divergenceTolerance
}
