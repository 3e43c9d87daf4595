package inventory

import (
	"errors"
	"time"
)

// LedgerEntry is the valuation state for one (item code, unit) pair. GoodQty
// holds quantity that passed QA (or is pending disposition), DamagedQty holds
// quantity failed out by QA. TotalValue is attributed to good stock only.
type LedgerEntry struct {
	ItemCode         string
	Description      string
	Unit             string
	GoodQty          float64
	DamagedQty       float64
	TotalValue       float64
	WeightedAvgPrice float64
	UpdatedAt        time.Time
}

// InboundInput folds a received lot into the ledger at the PO rate.
type InboundInput struct {
	ItemCode    string
	Description string
	Unit        string
	Qty         float64
	Rate        float64
	RefLot      string
}

// ReclassifyInput re-partitions an entry between good and damaged buckets
// after a QA disposition.
type ReclassifyInput struct {
	ItemCode   string
	Unit       string
	PassQty    float64
	DamagedQty float64
	RefLot     string
}

// IssueInput debits good stock. Unit may be empty when the item code maps to
// a single ledger entry.
type IssueInput struct {
	ItemCode string
	Unit     string
	Qty      float64
}

var (
	// ErrEntryNotFound indicates no ledger entry for the item.
	ErrEntryNotFound = errors.New("inventory: ledger entry not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidRate indicates a negative unit rate.
	ErrInvalidRate = errors.New("inventory: rate must be >= 0")
	// ErrInsufficientStock indicates an issue exceeding good stock. Damaged
	// stock is never issuable.
	ErrInsufficientStock = errors.New("inventory: insufficient good stock")
	// ErrAmbiguousUnit indicates an item code held in more than one unit.
	ErrAmbiguousUnit = errors.New("inventory: item held in multiple units, unit required")
)
