package quality

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/procurement"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

type fixture struct {
	quality     *Service
	procurement *procurement.Service
	ledger      *inventory.Service
	log         *shared.MemoryLog
}

// newFixture wires the memory stores end to end: PR -> PO -> GR -> QA.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := shared.NewMemoryLog()
	ledger := inventory.NewService(inventory.NewMemoryRepository(), log, nil, nil)
	proc := procurement.NewService(procurement.NewMemoryRepository(), ledger, log, nil)
	qa := NewService(NewMemoryRepository(), proc, ledger, log, nil)
	return &fixture{quality: qa, procurement: proc, ledger: ledger, log: log}
}

// receiveLot drives a full receipt of qty at rate and returns the lot number.
func (f *fixture) receiveLot(t *testing.T, qty, rate float64) string {
	t.Helper()
	ctx := context.Background()
	pr, err := f.procurement.CreateRequisition(ctx, procurement.CreateRequisitionInput{
		RequestedBy: "stores",
		Items:       []procurement.RequisitionItemInput{{ItemCode: "A", Description: "APPLE", Quantity: qty, Unit: "kg"}},
	})
	require.NoError(t, err)
	_, err = f.procurement.ApproveRequisition(ctx, pr.ID)
	require.NoError(t, err)

	po, err := f.procurement.CreateOrder(ctx, procurement.CreateOrderInput{
		PRIDs:  []string{pr.ID},
		Vendor: "ACME",
		Items: []procurement.OrderItemInput{{
			PRItemID: pr.Items[0].ID, ItemCode: "A", Description: "APPLE",
			Quantity: qty, Unit: "kg", Rate: rate,
		}},
	})
	require.NoError(t, err)
	_, err = f.procurement.ApproveOrder(ctx, po.ID)
	require.NoError(t, err)

	gr, err := f.procurement.PostReceipt(ctx, procurement.PostReceiptInput{
		POID: po.ID,
		Lines: []procurement.ReceiptLineInput{{
			POItemID: po.Items[0].ID, ReceivedQuantity: qty,
			ManufacturingDate: "2026-01-01", ExpiryDate: "2027-01-01",
			InvoiceNo: "INV-1", InvoiceDate: "2026-01-02",
		}},
	})
	require.NoError(t, err)
	return gr.Items[0].LotNo
}

func TestDisposeLotRepartitionsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lotNo := f.receiveLot(t, 100, 10)

	record, err := f.quality.DisposeLot(ctx, DisposeInput{
		LotNo: lotNo, PassQty: 60, DamageQty: 25, ShelfLifeFailQty: 10, ExpiryFailQty: 5,
		Remark: "visual check",
	})
	require.NoError(t, err)
	require.InDelta(t, 40.0, record.FailedQty(), 1e-9)

	snapshot, err := f.ledger.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	entry := snapshot[0]
	require.InDelta(t, 60.0, entry.GoodQty, 1e-9)
	require.InDelta(t, 40.0, entry.DamagedQty, 1e-9)
	// 1000 * 60/100.
	require.InDelta(t, 600.0, entry.TotalValue, 1e-9)
	require.InDelta(t, 10.0, entry.WeightedAvgPrice, 1e-9)
}

func TestDisposeLotQuantityMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lotNo := f.receiveLot(t, 100, 10)

	_, err := f.quality.DisposeLot(ctx, DisposeInput{
		LotNo: lotNo, PassQty: 60, DamageQty: 30, Remark: "short count",
	})
	require.ErrorIs(t, err, ErrQuantityMismatch)

	// The ledger stays untouched on refusal.
	snapshot, err := f.ledger.Snapshot(ctx)
	require.NoError(t, err)
	require.InDelta(t, 100.0, snapshot[0].GoodQty, 1e-9)
	require.InDelta(t, 0.0, snapshot[0].DamagedQty, 1e-9)
}

func TestDisposeLotOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lotNo := f.receiveLot(t, 100, 10)

	_, err := f.quality.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 100, Remark: "all good"})
	require.NoError(t, err)
	_, err = f.quality.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 100, Remark: "again"})
	require.ErrorIs(t, err, ErrAlreadyDisposed)
}

func TestDisposeLotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lotNo := f.receiveLot(t, 100, 10)

	_, err := f.quality.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 100})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.quality.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 110, DamageQty: -10, Remark: "neg"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.quality.DisposeLot(ctx, DisposeInput{LotNo: "LOT-missing", PassQty: 1, Remark: "x"})
	require.ErrorIs(t, err, procurement.ErrLotNotFound)
}

func TestPendingLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.receiveLot(t, 50, 10)
	second := f.receiveLot(t, 30, 12)

	pending, err := f.quality.PendingLots(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = f.quality.DisposeLot(ctx, DisposeInput{LotNo: first, PassQty: 50, Remark: "clean"})
	require.NoError(t, err)

	pending, err = f.quality.PendingLots(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second, pending[0].LotNo)
}

func TestDisposeAllFailedZeroesGoodStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lotNo := f.receiveLot(t, 20, 15)

	_, err := f.quality.DisposeLot(ctx, DisposeInput{
		LotNo: lotNo, ExpiryFailQty: 20, Remark: "expired on arrival",
	})
	require.NoError(t, err)

	snapshot, err := f.ledger.Snapshot(ctx)
	require.NoError(t, err)
	entry := snapshot[0]
	require.InDelta(t, 0.0, entry.GoodQty, 1e-9)
	require.InDelta(t, 20.0, entry.DamagedQty, 1e-9)
	require.InDelta(t, 0.0, entry.TotalValue, 1e-9)
	require.InDelta(t, 0.0, entry.WeightedAvgPrice, 1e-9)

	_, err = f.ledger.Issue(ctx, inventory.IssueInput{ItemCode: "A", Qty: 1})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

type insertFailRepo struct {
	*MemoryRepository
	insertErr error
}

func (r *insertFailRepo) Insert(ctx context.Context, record DispositionRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.MemoryRepository.Insert(ctx, record)
}

func TestDisposeLotFailedInsertLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	log := shared.NewMemoryLog()
	ledger := inventory.NewService(inventory.NewMemoryRepository(), log, nil, nil)
	proc := procurement.NewService(procurement.NewMemoryRepository(), ledger, log, nil)
	repo := &insertFailRepo{MemoryRepository: NewMemoryRepository(), insertErr: errors.New("store down")}
	qa := NewService(repo, proc, ledger, log, nil)
	f := &fixture{quality: qa, procurement: proc, ledger: ledger, log: log}
	lotNo := f.receiveLot(t, 100, 10)

	_, err := qa.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 60, DamageQty: 40, Remark: "check"})
	require.Error(t, err)

	snapshot, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	require.InDelta(t, 100.0, snapshot[0].GoodQty, 1e-9)
	require.InDelta(t, 0.0, snapshot[0].DamagedQty, 1e-9)
	require.InDelta(t, 1000.0, snapshot[0].TotalValue, 1e-9)

	// The lot was never claimed and stays disposable.
	repo.insertErr = nil
	_, err = qa.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 60, DamageQty: 40, Remark: "check"})
	require.NoError(t, err)
}

type reclassifyFailLedger struct {
	err error
}

func (l *reclassifyFailLedger) Reclassify(ctx context.Context, input inventory.ReclassifyInput) (inventory.LedgerEntry, error) {
	return inventory.LedgerEntry{}, l.err
}

func TestDisposeLotFailedReclassifyReleasesClaim(t *testing.T) {
	ctx := context.Background()
	log := shared.NewMemoryLog()
	ledger := inventory.NewService(inventory.NewMemoryRepository(), log, nil, nil)
	proc := procurement.NewService(procurement.NewMemoryRepository(), ledger, log, nil)
	repo := NewMemoryRepository()
	broken := &reclassifyFailLedger{err: errors.New("ledger down")}
	qa := NewService(repo, proc, broken, log, nil)
	f := &fixture{quality: qa, procurement: proc, ledger: ledger, log: log}
	lotNo := f.receiveLot(t, 50, 10)

	_, err := qa.DisposeLot(ctx, DisposeInput{LotNo: lotNo, PassQty: 50, Remark: "check"})
	require.Error(t, err)

	pending, err := qa.PendingLots(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, lotNo, pending[0].LotNo)

	records, err := qa.ListDispositions(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestEventLogReplayMatchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.receiveLot(t, 100, 10)
	second := f.receiveLot(t, 50, 16)

	_, err := f.quality.DisposeLot(ctx, DisposeInput{
		LotNo: first, PassQty: 80, DamageQty: 20, Remark: "routine",
	})
	require.NoError(t, err)
	_, err = f.quality.DisposeLot(ctx, DisposeInput{
		LotNo: second, PassQty: 50, Remark: "clean",
	})
	require.NoError(t, err)

	_, err = f.ledger.Issue(ctx, inventory.IssueInput{ItemCode: "A", Unit: "kg", Qty: 30})
	require.NoError(t, err)

	// Folding the recorded log reproduces the live ledger exactly.
	events, err := f.log.List(ctx)
	require.NoError(t, err)
	replayed := inventory.Replay(events)

	live, err := f.ledger.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, replayed, len(live))
	for i := range live {
		require.Equal(t, live[i].ItemCode, replayed[i].ItemCode)
		require.Equal(t, live[i].Unit, replayed[i].Unit)
		require.InDelta(t, live[i].GoodQty, replayed[i].GoodQty, 1e-9)
		require.InDelta(t, live[i].DamagedQty, replayed[i].DamagedQty, 1e-9)
		require.InDelta(t, live[i].TotalValue, replayed[i].TotalValue, 1e-9)
		require.InDelta(t, live[i].WeightedAvgPrice, replayed[i].WeightedAvgPrice, 1e-9)
	}
}
