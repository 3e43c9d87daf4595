package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpilot-erp/stockpilot/internal/platform/db"
)

// TxRepository exposes the per-entry operations used inside a command.
type TxRepository interface {
	GetEntryForUpdate(ctx context.Context, itemCode, unit string) (LedgerEntry, error)
	UpsertEntry(ctx context.Context, entry LedgerEntry) error
}

// Repository persists the ledger in PostgreSQL for deployments that want the
// engine state durable. Row locks plus repeatable-read transactions provide
// the per-entry mutual exclusion the engine requires.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed ledger store.
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

// Snapshot lists every ledger entry ordered by item code then unit.
func (r *Repository) Snapshot(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_code, description, unit, good_qty, damaged_qty, total_value, weighted_avg_price, updated_at
		 FROM stock_ledger ORDER BY item_code, unit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesByItem lists entries for one item code ordered by unit.
func (r *Repository) EntriesByItem(ctx context.Context, itemCode string) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_code, description, unit, good_qty, damaged_qty, total_value, weighted_avg_price, updated_at
		 FROM stock_ledger WHERE item_code = $1 ORDER BY unit`, itemCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (t *pgTx) GetEntryForUpdate(ctx context.Context, itemCode, unit string) (LedgerEntry, error) {
	var entry LedgerEntry
	err := t.tx.QueryRow(ctx,
		`SELECT item_code, description, unit, good_qty, damaged_qty, total_value, weighted_avg_price, updated_at
		 FROM stock_ledger WHERE item_code = $1 AND unit = $2 FOR UPDATE`, itemCode, unit).
		Scan(&entry.ItemCode, &entry.Description, &entry.Unit, &entry.GoodQty, &entry.DamagedQty,
			&entry.TotalValue, &entry.WeightedAvgPrice, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{ItemCode: itemCode, Unit: unit}, ErrEntryNotFound
		}
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (t *pgTx) UpsertEntry(ctx context.Context, entry LedgerEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_ledger (item_code, description, unit, good_qty, damaged_qty, total_value, weighted_avg_price, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (item_code, unit) DO UPDATE SET
		   description = EXCLUDED.description,
		   good_qty = EXCLUDED.good_qty,
		   damaged_qty = EXCLUDED.damaged_qty,
		   total_value = EXCLUDED.total_value,
		   weighted_avg_price = EXCLUDED.weighted_avg_price,
		   updated_at = NOW()`,
		entry.ItemCode, entry.Description, entry.Unit, entry.GoodQty, entry.DamagedQty,
		entry.TotalValue, entry.WeightedAvgPrice)
	return err
}

func scanEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	for rows.Next() {
		var entry LedgerEntry
		if err := rows.Scan(&entry.ItemCode, &entry.Description, &entry.Unit, &entry.GoodQty,
			&entry.DamagedQty, &entry.TotalValue, &entry.WeightedAvgPrice, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
