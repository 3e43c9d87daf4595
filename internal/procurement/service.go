package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

// RepositoryPort describes document store operations used by the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPR(ctx context.Context, id string) (PurchaseRequisition, error)
	GetPO(ctx context.Context, id string) (PurchaseOrder, error)
	ListPRs(ctx context.Context) ([]PurchaseRequisition, error)
	ListPOs(ctx context.Context) ([]PurchaseOrder, error)
	ListGRs(ctx context.Context) ([]GoodsReceipt, error)
	ReceivedByPOItem(ctx context.Context, poID string) (map[string]float64, error)
	FindLot(ctx context.Context, lotNo string) (Lot, error)
	ListLots(ctx context.Context) ([]Lot, error)
}

// InventoryPort folds accepted receipts into the stock ledger.
type InventoryPort interface {
	PostInbound(ctx context.Context, input inventory.InboundInput) (inventory.LedgerEntry, error)
}

// Service orchestrates the PR -> PO -> GR document flow and acts as the
// receipt processor for the stock ledger.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	events    shared.Recorder
	logger    *slog.Logger
}

// NewService constructs the procurement service. Events are optional.
func NewService(repo RepositoryPort, inv InventoryPort, events shared.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, inventory: inv, events: events, logger: logger}
}

// RequisitionItemInput describes a requested line.
type RequisitionItemInput struct {
	ItemCode    string
	Description string
	Quantity    float64
	Unit        string
}

// CreateRequisitionInput describes the creation payload.
type CreateRequisitionInput struct {
	RequestedBy string
	Items       []RequisitionItemInput
}

// OrderItemInput describes an ordered line; derived amounts are computed.
type OrderItemInput struct {
	PRItemID      string
	ItemCode      string
	Description   string
	Quantity      float64
	Unit          string
	Rate          float64
	GSTPercentage float64
}

// CreateOrderInput describes PO creation from one or more PRs.
type CreateOrderInput struct {
	PRIDs  []string
	Vendor string
	Items  []OrderItemInput
}

// ReceiptLineInput describes one received line against a PO item.
type ReceiptLineInput struct {
	POItemID          string
	ReceivedQuantity  float64
	ManufacturingDate string
	ExpiryDate        string
	InvoiceNo         string
	InvoiceDate       string
}

// PostReceiptInput describes a goods receipt against an approved PO.
type PostReceiptInput struct {
	POID  string
	Lines []ReceiptLineInput
}

// CreateRequisition validates and persists a new PR in Pending status.
func (s *Service) CreateRequisition(ctx context.Context, input CreateRequisitionInput) (PurchaseRequisition, error) {
	if strings.TrimSpace(input.RequestedBy) == "" {
		return PurchaseRequisition{}, fmt.Errorf("%w: requested by required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseRequisition{}, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	pr := PurchaseRequisition{
		ID:          uuid.NewString(),
		RequestedBy: input.RequestedBy,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.ItemCode) == "" || strings.TrimSpace(item.Unit) == "" {
			return PurchaseRequisition{}, fmt.Errorf("%w: item code and unit required", ErrValidation)
		}
		if item.Quantity <= 0 {
			return PurchaseRequisition{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		pr.Items = append(pr.Items, PRItem{
			ID:          uuid.NewString(),
			ItemCode:    item.ItemCode,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
		})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertPR(ctx, pr)
	})
	if err != nil {
		return PurchaseRequisition{}, err
	}
	s.record(ctx, shared.Event{Kind: shared.EventPRCreated, Entity: "pr", EntityID: pr.ID,
		Payload: map[string]any{"requested_by": pr.RequestedBy, "items": len(pr.Items)}})
	return pr, nil
}

// ApproveRequisition transitions a Pending PR to Approved.
func (s *Service) ApproveRequisition(ctx context.Context, id string) (PurchaseRequisition, error) {
	return s.setPRStatus(ctx, id, StatusApproved, shared.EventPRApproved)
}

// RejectRequisition transitions a Pending PR to Rejected.
func (s *Service) RejectRequisition(ctx context.Context, id string) (PurchaseRequisition, error) {
	return s.setPRStatus(ctx, id, StatusRejected, shared.EventPRRejected)
}

func (s *Service) setPRStatus(ctx context.Context, id string, status DocStatus, eventKind string) (PurchaseRequisition, error) {
	pr, err := s.repo.GetPR(ctx, id)
	if err != nil {
		return PurchaseRequisition{}, err
	}
	if pr.Status != StatusPending {
		return PurchaseRequisition{}, ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePRStatus(ctx, id, status)
	})
	if err != nil {
		return PurchaseRequisition{}, err
	}
	pr.Status = status
	s.record(ctx, shared.Event{Kind: eventKind, Entity: "pr", EntityID: id, Payload: map[string]any{"status": string(status)}})
	return pr, nil
}

// CreateOrder copies requested items into a new Pending PO with derived
// monetary amounts. Every linked PR must exist and be Pending or Approved.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if len(input.PRIDs) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one linked requisition required", ErrValidation)
	}
	if strings.TrimSpace(input.Vendor) == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	for _, prID := range input.PRIDs {
		pr, err := s.repo.GetPR(ctx, prID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if pr.Status == StatusRejected {
			return PurchaseOrder{}, fmt.Errorf("%w: requisition %s is rejected", ErrInvalidState, prID)
		}
	}
	po := PurchaseOrder{
		ID:        uuid.NewString(),
		PRIDs:     append([]string(nil), input.PRIDs...),
		Vendor:    input.Vendor,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.ItemCode) == "" || strings.TrimSpace(item.Unit) == "" {
			return PurchaseOrder{}, fmt.Errorf("%w: item code and unit required", ErrValidation)
		}
		if item.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if item.Rate < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: rate must be >= 0", ErrValidation)
		}
		if item.GSTPercentage < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: gst percentage must be >= 0", ErrValidation)
		}
		value, gstAmount, totalAmount := computeAmounts(item.Rate, item.Quantity, item.GSTPercentage)
		po.Items = append(po.Items, POItem{
			ID:            uuid.NewString(),
			PRItemID:      item.PRItemID,
			ItemCode:      item.ItemCode,
			Description:   item.Description,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			Rate:          item.Rate,
			Value:         value,
			GSTPercentage: item.GSTPercentage,
			GSTAmount:     gstAmount,
			TotalAmount:   totalAmount,
		})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertPO(ctx, po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.record(ctx, shared.Event{Kind: shared.EventPOCreated, Entity: "po", EntityID: po.ID,
		Payload: map[string]any{"vendor": po.Vendor, "pr_ids": strings.Join(po.PRIDs, ","), "items": len(po.Items)}})
	return po, nil
}

// ApproveOrder transitions a Pending PO to Approved.
func (s *Service) ApproveOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.setPOStatus(ctx, id, StatusApproved, shared.EventPOApproved)
}

// RejectOrder transitions a Pending PO to Rejected.
func (s *Service) RejectOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.setPOStatus(ctx, id, StatusRejected, shared.EventPORejected)
}

func (s *Service) setPOStatus(ctx context.Context, id string, status DocStatus, eventKind string) (PurchaseOrder, error) {
	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusPending {
		return PurchaseOrder{}, ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, id, status)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = status
	s.record(ctx, shared.Event{Kind: eventKind, Entity: "po", EntityID: id, Payload: map[string]any{"status": string(status)}})
	return po, nil
}

// PostReceipt validates every line against the PO and the cumulative
// received quantities, then creates the goods receipt and folds each lot
// into the stock ledger. All lines are validated before any mutation.
func (s *Service) PostReceipt(ctx context.Context, input PostReceiptInput) (GoodsReceipt, error) {
	po, err := s.repo.GetPO(ctx, input.POID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if po.Status != StatusApproved {
		return GoodsReceipt{}, fmt.Errorf("%w: purchase order not approved", ErrInvalidState)
	}
	if len(input.Lines) == 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	received, err := s.repo.ReceivedByPOItem(ctx, po.ID)
	if err != nil {
		return GoodsReceipt{}, err
	}

	poItems := make(map[string]POItem, len(po.Items))
	for _, item := range po.Items {
		poItems[item.ID] = item
	}
	batch := make(map[string]float64, len(input.Lines))
	for _, line := range input.Lines {
		if line.ReceivedQuantity <= 0 {
			return GoodsReceipt{}, fmt.Errorf("%w: received quantity must be positive", ErrValidation)
		}
		if line.ManufacturingDate == "" || line.ExpiryDate == "" || line.InvoiceNo == "" || line.InvoiceDate == "" {
			return GoodsReceipt{}, fmt.Errorf("%w: manufacturing date, expiry date, invoice no and invoice date required", ErrValidation)
		}
		poItem, ok := poItems[line.POItemID]
		if !ok {
			return GoodsReceipt{}, fmt.Errorf("%w: unknown po item %s", ErrValidation, line.POItemID)
		}
		remaining := poItem.Quantity - received[poItem.ID] - batch[poItem.ID]
		if line.ReceivedQuantity > remaining {
			return GoodsReceipt{}, fmt.Errorf("%w: item %s has %.2f %s pending", ErrQuantityExceedsOrder, poItem.ItemCode, remaining, poItem.Unit)
		}
		batch[poItem.ID] += line.ReceivedQuantity
	}

	now := time.Now().UTC()
	gr := GoodsReceipt{ID: uuid.NewString(), POID: po.ID, CreatedAt: now}
	for i, line := range input.Lines {
		poItem := poItems[line.POItemID]
		lotNo := generateLotNo(now, i)
		gr.Items = append(gr.Items, ReceiptItem{
			ID:                uuid.NewString(),
			POItemID:          poItem.ID,
			ItemCode:          poItem.ItemCode,
			Description:       poItem.Description,
			ReceivedQuantity:  line.ReceivedQuantity,
			Unit:              poItem.Unit,
			ManufacturingDate: line.ManufacturingDate,
			ExpiryDate:        line.ExpiryDate,
			InvoiceNo:         line.InvoiceNo,
			InvoiceDate:       line.InvoiceDate,
			LotNo:             lotNo,
			TraceCode:         traceCode(poItem.ItemCode, lotNo, line),
			ReceivedAt:        now,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertGR(ctx, gr)
	})
	if err != nil {
		return GoodsReceipt{}, err
	}

	// The event is recorded with the document, before the ledger folds. A
	// fold that fails midway leaves the receipt and its event durable, so the
	// integrity job sees the ledger diverge from the log instead of a
	// receipt that silently never happened.
	s.record(ctx, shared.Event{Kind: shared.EventGRPosted, Entity: "gr", EntityID: gr.ID,
		Payload: receiptEventPayload(gr, poItems)})

	for _, item := range gr.Items {
		poItem := poItems[item.POItemID]
		if _, err := s.inventory.PostInbound(ctx, inventory.InboundInput{
			ItemCode:    item.ItemCode,
			Description: item.Description,
			Unit:        item.Unit,
			Qty:         item.ReceivedQuantity,
			Rate:        poItem.Rate,
			RefLot:      item.LotNo,
		}); err != nil {
			s.logger.Error("ledger fold for receipt line",
				slog.String("gr_id", gr.ID),
				slog.String("lot_no", item.LotNo),
				slog.Any("error", err))
			return GoodsReceipt{}, fmt.Errorf("procurement: ledger update for lot %s: %w", item.LotNo, err)
		}
	}

	s.logger.Info("goods receipt posted",
		slog.String("gr_id", gr.ID),
		slog.String("po_id", po.ID),
		slog.Int("lines", len(gr.Items)))
	return gr, nil
}

// OrderProgressFor reports ordered, received and pending quantity per PO line.
func (s *Service) OrderProgressFor(ctx context.Context, poID string) ([]OrderProgress, error) {
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	received, err := s.repo.ReceivedByPOItem(ctx, poID)
	if err != nil {
		return nil, err
	}
	progress := make([]OrderProgress, 0, len(po.Items))
	for _, item := range po.Items {
		progress = append(progress, OrderProgress{
			POItemID:    item.ID,
			ItemCode:    item.ItemCode,
			Description: item.Description,
			Unit:        item.Unit,
			OrderedQty:  item.Quantity,
			ReceivedQty: received[item.ID],
			PendingQty:  item.Quantity - received[item.ID],
		})
	}
	return progress, nil
}

// ListRequisitions returns the PR register in creation order.
func (s *Service) ListRequisitions(ctx context.Context) ([]PurchaseRequisition, error) {
	return s.repo.ListPRs(ctx)
}

// ListOrders returns the PO register in creation order.
func (s *Service) ListOrders(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx)
}

// ListReceipts returns the GR register in creation order.
func (s *Service) ListReceipts(ctx context.Context) ([]GoodsReceipt, error) {
	return s.repo.ListGRs(ctx)
}

// FindLot resolves a lot number to its receipt line.
func (s *Service) FindLot(ctx context.Context, lotNo string) (Lot, error) {
	return s.repo.FindLot(ctx, lotNo)
}

// ListLots returns every received lot in receipt order.
func (s *Service) ListLots(ctx context.Context) ([]Lot, error) {
	return s.repo.ListLots(ctx)
}

func (s *Service) record(ctx context.Context, evt shared.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, evt); err != nil {
		s.logger.Warn("record procurement event", slog.Any("error", err))
	}
}

// computeAmounts derives line money with 2dp rounding: value = rate * qty,
// gst = value * pct / 100, total = value + gst.
func computeAmounts(rate, qty, gstPct float64) (value, gstAmount, totalAmount float64) {
	v := decimal.NewFromFloat(rate).Mul(decimal.NewFromFloat(qty)).Round(2)
	g := v.Mul(decimal.NewFromFloat(gstPct)).Div(decimal.NewFromInt(100)).Round(2)
	t := v.Add(g)
	value, _ = v.Float64()
	gstAmount, _ = g.Float64()
	totalAmount, _ = t.Float64()
	return value, gstAmount, totalAmount
}

// generateLotNo yields lot numbers unique per receipt event and ordered
// within the batch.
func generateLotNo(at time.Time, index int) string {
	return fmt.Sprintf("LOT-%d-%02d", at.UnixNano(), index+1)
}

// traceCode concatenates item code, lot and the invoice/date fields with a
// fixed delimiter.
func traceCode(itemCode, lotNo string, line ReceiptLineInput) string {
	return strings.Join([]string{itemCode, lotNo, line.ManufacturingDate, line.ExpiryDate, line.InvoiceNo, line.InvoiceDate}, "|")
}
