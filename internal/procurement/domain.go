package procurement

import (
	"errors"
	"time"
)

// DocStatus is the shared lifecycle for requisitions and orders. Approved
// and Rejected are terminal.
type DocStatus string

const (
	StatusPending  DocStatus = "Pending"
	StatusApproved DocStatus = "Approved"
	StatusRejected DocStatus = "Rejected"
)

// PRItem is a requested line on a purchase requisition.
type PRItem struct {
	ID          string  `json:"id"`
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// PurchaseRequisition is an internal request for goods.
type PurchaseRequisition struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requested_by"`
	Status      DocStatus `json:"status"`
	Items       []PRItem  `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

// POItem is an ordered line. Value, GSTAmount and TotalAmount are always
// derived from Rate, Quantity and GSTPercentage, never set independently.
type POItem struct {
	ID            string  `json:"id"`
	PRItemID      string  `json:"pr_item_id"`
	ItemCode      string  `json:"item_code"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	Rate          float64 `json:"rate"`
	Value         float64 `json:"value"`
	GSTPercentage float64 `json:"gst_percentage"`
	GSTAmount     float64 `json:"gst_amount"`
	TotalAmount   float64 `json:"total_amount"`
}

// PurchaseOrder is a vendor-facing order derived from one or more PRs.
type PurchaseOrder struct {
	ID        string    `json:"id"`
	PRIDs     []string  `json:"pr_ids"`
	Vendor    string    `json:"vendor"`
	Status    DocStatus `json:"status"`
	Items     []POItem  `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptItem is a received lot against one PO line. LotNo is generated per
// receipt event; TraceCode concatenates the traceability fields.
type ReceiptItem struct {
	ID                string    `json:"id"`
	POItemID          string    `json:"po_item_id"`
	ItemCode          string    `json:"item_code"`
	Description       string    `json:"description"`
	ReceivedQuantity  float64   `json:"received_quantity"`
	Unit              string    `json:"unit"`
	ManufacturingDate string    `json:"manufacturing_date"`
	ExpiryDate        string    `json:"expiry_date"`
	InvoiceNo         string    `json:"invoice_no"`
	InvoiceDate       string    `json:"invoice_date"`
	LotNo             string    `json:"lot_no"`
	TraceCode         string    `json:"trace_code"`
	ReceivedAt        time.Time `json:"received_at"`
}

// GoodsReceipt records a physical receipt of PO line items. Append-only once
// created.
type GoodsReceipt struct {
	ID        string        `json:"id"`
	POID      string        `json:"po_id"`
	Items     []ReceiptItem `json:"items"`
	CreatedAt time.Time     `json:"created_at"`
}

// Lot is the QA-facing view of a received line.
type Lot struct {
	LotNo       string    `json:"lot_no"`
	GRID        string    `json:"gr_id"`
	ItemCode    string    `json:"item_code"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	ReceivedAt  time.Time `json:"received_at"`
}

// OrderProgress summarises receipt progress for one PO line.
type OrderProgress struct {
	POItemID    string  `json:"po_item_id"`
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	OrderedQty  float64 `json:"ordered_qty"`
	ReceivedQty float64 `json:"received_qty"`
	PendingQty  float64 `json:"pending_qty"`
}

var (
	// ErrNotFound indicates a missing document.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input, always raised before mutation.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrQuantityExceedsOrder occurs when a receipt would push the cumulative
	// received quantity over the ordered quantity for a PO line.
	ErrQuantityExceedsOrder = errors.New("procurement: received quantity exceeds order")
	// ErrLotNotFound indicates no receipt line carries the lot number.
	ErrLotNotFound = errors.New("procurement: lot not found")
)
