package quality

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists dispositions in PostgreSQL. The unique lot_no column
// enforces dispose-once at the store level.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed disposition store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, record DispositionRecord) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO qa_dispositions
		   (id, lot_no, item_code, description, lot_qty, unit, pass_qty, damage_qty,
		    shelf_life_fail_qty, expiry_fail_qty, remark, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (lot_no) DO NOTHING`,
		record.ID, record.LotNo, record.ItemCode, record.Description, record.LotQty, record.Unit,
		record.PassQty, record.DamageQty, record.ShelfLifeFailQty, record.ExpiryFailQty,
		record.Remark, record.CheckedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDisposed
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, lotNo string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM qa_dispositions WHERE lot_no = $1`, lotNo)
	return err
}

func (r *Repository) ByLot(ctx context.Context, lotNo string) (DispositionRecord, bool, error) {
	var record DispositionRecord
	err := r.pool.QueryRow(ctx,
		`SELECT id, lot_no, item_code, description, lot_qty, unit, pass_qty, damage_qty,
		        shelf_life_fail_qty, expiry_fail_qty, remark, checked_at
		 FROM qa_dispositions WHERE lot_no = $1`, lotNo).
		Scan(&record.ID, &record.LotNo, &record.ItemCode, &record.Description, &record.LotQty,
			&record.Unit, &record.PassQty, &record.DamageQty, &record.ShelfLifeFailQty,
			&record.ExpiryFailQty, &record.Remark, &record.CheckedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DispositionRecord{}, false, nil
		}
		return DispositionRecord{}, false, err
	}
	return record, true, nil
}

func (r *Repository) List(ctx context.Context) ([]DispositionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lot_no, item_code, description, lot_qty, unit, pass_qty, damage_qty,
		        shelf_life_fail_qty, expiry_fail_qty, remark, checked_at
		 FROM qa_dispositions ORDER BY checked_at, lot_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DispositionRecord
	for rows.Next() {
		var record DispositionRecord
		if err := rows.Scan(&record.ID, &record.LotNo, &record.ItemCode, &record.Description,
			&record.LotQty, &record.Unit, &record.PassQty, &record.DamageQty,
			&record.ShelfLifeFailQty, &record.ExpiryFailQty, &record.Remark, &record.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
