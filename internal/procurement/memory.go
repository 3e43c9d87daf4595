package procurement

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps procurement documents in process memory. Like the
// ledger memory store it is the default driver; a single mutex serialises
// every transaction.
type MemoryRepository struct {
	mu  sync.Mutex
	prs map[string]PurchaseRequisition
	pos map[string]PurchaseOrder
	grs map[string]GoodsReceipt
}

// NewMemoryRepository constructs an empty document store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		prs: make(map[string]PurchaseRequisition),
		pos: make(map[string]PurchaseOrder),
		grs: make(map[string]GoodsReceipt),
	}
}

type memoryTx struct {
	repo *MemoryRepository
}

// WithTx runs fn under the store mutex.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *MemoryRepository) GetPR(ctx context.Context, id string) (PurchaseRequisition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pr, ok := r.prs[id]; ok {
		return clonePR(pr), nil
	}
	return PurchaseRequisition{}, ErrNotFound
}

func (r *MemoryRepository) GetPO(ctx context.Context, id string) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if po, ok := r.pos[id]; ok {
		return clonePO(po), nil
	}
	return PurchaseOrder{}, ErrNotFound
}

func (r *MemoryRepository) ListPRs(ctx context.Context) ([]PurchaseRequisition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PurchaseRequisition, 0, len(r.prs))
	for _, pr := range r.prs {
		out = append(out, clonePR(pr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ListPOs(ctx context.Context) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PurchaseOrder, 0, len(r.pos))
	for _, po := range r.pos {
		out = append(out, clonePO(po))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ListGRs(ctx context.Context) ([]GoodsReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GoodsReceipt, 0, len(r.grs))
	for _, gr := range r.grs {
		out = append(out, cloneGR(gr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ReceivedByPOItem sums received quantities across every receipt of a PO.
func (r *MemoryRepository) ReceivedByPOItem(ctx context.Context, poID string) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[string]float64)
	for _, gr := range r.grs {
		if gr.POID != poID {
			continue
		}
		for _, item := range gr.Items {
			totals[item.POItemID] += item.ReceivedQuantity
		}
	}
	return totals, nil
}

func (r *MemoryRepository) FindLot(ctx context.Context, lotNo string) (Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, gr := range r.grs {
		for _, item := range gr.Items {
			if item.LotNo == lotNo {
				return lotFromReceipt(gr, item), nil
			}
		}
	}
	return Lot{}, ErrLotNotFound
}

func (r *MemoryRepository) ListLots(ctx context.Context) ([]Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Lot
	for _, gr := range r.grs {
		for _, item := range gr.Items {
			out = append(out, lotFromReceipt(gr, item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].LotNo < out[j].LotNo
	})
	return out, nil
}

func (tx *memoryTx) InsertPR(ctx context.Context, pr PurchaseRequisition) error {
	tx.repo.prs[pr.ID] = clonePR(pr)
	return nil
}

func (tx *memoryTx) UpdatePRStatus(ctx context.Context, id string, status DocStatus) error {
	pr, ok := tx.repo.prs[id]
	if !ok {
		return ErrNotFound
	}
	pr.Status = status
	tx.repo.prs[id] = pr
	return nil
}

func (tx *memoryTx) InsertPO(ctx context.Context, po PurchaseOrder) error {
	tx.repo.pos[po.ID] = clonePO(po)
	return nil
}

func (tx *memoryTx) UpdatePOStatus(ctx context.Context, id string, status DocStatus) error {
	po, ok := tx.repo.pos[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	tx.repo.pos[id] = po
	return nil
}

func (tx *memoryTx) InsertGR(ctx context.Context, gr GoodsReceipt) error {
	tx.repo.grs[gr.ID] = cloneGR(gr)
	return nil
}

func lotFromReceipt(gr GoodsReceipt, item ReceiptItem) Lot {
	return Lot{
		LotNo:       item.LotNo,
		GRID:        gr.ID,
		ItemCode:    item.ItemCode,
		Description: item.Description,
		Quantity:    item.ReceivedQuantity,
		Unit:        item.Unit,
		ReceivedAt:  item.ReceivedAt,
	}
}

func clonePR(pr PurchaseRequisition) PurchaseRequisition {
	pr.Items = append([]PRItem(nil), pr.Items...)
	return pr
}

func clonePO(po PurchaseOrder) PurchaseOrder {
	po.PRIDs = append([]string(nil), po.PRIDs...)
	po.Items = append([]POItem(nil), po.Items...)
	return po
}

func cloneGR(gr GoodsReceipt) GoodsReceipt {
	gr.Items = append([]ReceiptItem(nil), gr.Items...)
	return gr
}
