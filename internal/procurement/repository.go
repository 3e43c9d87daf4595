package procurement

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot-erp/stockpilot/internal/platform/db"
)

// TxRepository exposes the document mutations used inside a command.
type TxRepository interface {
	InsertPR(ctx context.Context, pr PurchaseRequisition) error
	UpdatePRStatus(ctx context.Context, id string, status DocStatus) error
	InsertPO(ctx context.Context, po PurchaseOrder) error
	UpdatePOStatus(ctx context.Context, id string, status DocStatus) error
	InsertGR(ctx context.Context, gr GoodsReceipt) error
}

// Repository persists procurement documents in PostgreSQL. Line items are
// stored as JSONB since documents are written once and read whole.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed document store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type pgTx struct {
	tx pgx.Tx
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

func (r *Repository) GetPR(ctx context.Context, id string) (PurchaseRequisition, error) {
	var (
		pr    PurchaseRequisition
		items []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, requested_by, status, items, created_at
		 FROM purchase_requisitions WHERE id = $1`, id).
		Scan(&pr.ID, &pr.RequestedBy, &pr.Status, &items, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequisition{}, ErrNotFound
		}
		return PurchaseRequisition{}, err
	}
	if err := json.Unmarshal(items, &pr.Items); err != nil {
		return PurchaseRequisition{}, err
	}
	return pr, nil
}

func (r *Repository) GetPO(ctx context.Context, id string) (PurchaseOrder, error) {
	var (
		po    PurchaseOrder
		items []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, pr_ids, vendor, status, items, created_at
		 FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.PRIDs, &po.Vendor, &po.Status, &items, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	if err := json.Unmarshal(items, &po.Items); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *Repository) ListPRs(ctx context.Context) ([]PurchaseRequisition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, requested_by, status, items, created_at
		 FROM purchase_requisitions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseRequisition
	for rows.Next() {
		var (
			pr    PurchaseRequisition
			items []byte
		)
		if err := rows.Scan(&pr.ID, &pr.RequestedBy, &pr.Status, &items, &pr.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &pr.Items); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *Repository) ListPOs(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pr_ids, vendor, status, items, created_at
		 FROM purchase_orders ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		var (
			po    PurchaseOrder
			items []byte
		)
		if err := rows.Scan(&po.ID, &po.PRIDs, &po.Vendor, &po.Status, &items, &po.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &po.Items); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (r *Repository) ListGRs(ctx context.Context) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, po_id, items, created_at
		 FROM goods_receipts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReceipts(rows)
}

// ReceivedByPOItem sums received quantities across every receipt of a PO.
func (r *Repository) ReceivedByPOItem(ctx context.Context, poID string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT line->>'po_item_id', (line->>'received_quantity')::float8
		 FROM goods_receipts, jsonb_array_elements(items) AS line
		 WHERE po_id = $1`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var (
			poItemID string
			qty      float64
		)
		if err := rows.Scan(&poItemID, &qty); err != nil {
			return nil, err
		}
		totals[poItemID] += qty
	}
	return totals, rows.Err()
}

func (r *Repository) FindLot(ctx context.Context, lotNo string) (Lot, error) {
	grs, err := r.ListGRs(ctx)
	if err != nil {
		return Lot{}, err
	}
	for _, gr := range grs {
		for _, item := range gr.Items {
			if item.LotNo == lotNo {
				return lotFromReceipt(gr, item), nil
			}
		}
	}
	return Lot{}, ErrLotNotFound
}

func (r *Repository) ListLots(ctx context.Context) ([]Lot, error) {
	grs, err := r.ListGRs(ctx)
	if err != nil {
		return nil, err
	}
	var out []Lot
	for _, gr := range grs {
		for _, item := range gr.Items {
			out = append(out, lotFromReceipt(gr, item))
		}
	}
	return out, nil
}

func (t *pgTx) InsertPR(ctx context.Context, pr PurchaseRequisition) error {
	items, err := json.Marshal(pr.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO purchase_requisitions (id, requested_by, status, items, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		pr.ID, pr.RequestedBy, pr.Status, items, pr.CreatedAt)
	return err
}

func (t *pgTx) UpdatePRStatus(ctx context.Context, id string, status DocStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE purchase_requisitions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertPO(ctx context.Context, po PurchaseOrder) error {
	items, err := json.Marshal(po.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO purchase_orders (id, pr_ids, vendor, status, items, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		po.ID, po.PRIDs, po.Vendor, po.Status, items, po.CreatedAt)
	return err
}

func (t *pgTx) UpdatePOStatus(ctx context.Context, id string, status DocStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE purchase_orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertGR(ctx context.Context, gr GoodsReceipt) error {
	items, err := json.Marshal(gr.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO goods_receipts (id, po_id, items, created_at)
		 VALUES ($1, $2, $3, $4)`,
		gr.ID, gr.POID, items, gr.CreatedAt)
	return err
}

func scanReceipts(rows pgx.Rows) ([]GoodsReceipt, error) {
	var out []GoodsReceipt
	for rows.Next() {
		var (
			gr    GoodsReceipt
			items []byte
		)
		if err := rows.Scan(&gr.ID, &gr.POID, &items, &gr.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &gr.Items); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}
