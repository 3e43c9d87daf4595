package quality

import (
	"errors"
	"time"
)

// DispositionRecord is the immutable outcome of checking one lot. The four
// outcome quantities always sum to the lot quantity.
type DispositionRecord struct {
	ID               string    `json:"id"`
	LotNo            string    `json:"lot_no"`
	ItemCode         string    `json:"item_code"`
	Description      string    `json:"description"`
	LotQty           float64   `json:"lot_qty"`
	Unit             string    `json:"unit"`
	PassQty          float64   `json:"pass_qty"`
	DamageQty        float64   `json:"damage_qty"`
	ShelfLifeFailQty float64   `json:"shelf_life_fail_qty"`
	ExpiryFailQty    float64   `json:"expiry_fail_qty"`
	Remark           string    `json:"remark"`
	CheckedAt        time.Time `json:"checked_at"`
}

// FailedQty is the total quantity moved to the damaged bucket.
func (d DispositionRecord) FailedQty() float64 {
	return d.DamageQty + d.ShelfLifeFailQty + d.ExpiryFailQty
}

var (
	// ErrValidation indicates invalid disposition input.
	ErrValidation = errors.New("quality: invalid input")
	// ErrQuantityMismatch occurs when the outcome quantities do not sum to
	// the lot quantity exactly.
	ErrQuantityMismatch = errors.New("quality: outcome quantities do not sum to lot quantity")
	// ErrAlreadyDisposed occurs when a lot already has a disposition.
	ErrAlreadyDisposed = errors.New("quality: lot already disposed")
)
