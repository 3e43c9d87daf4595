package procurement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpilot-erp/stockpilot/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the procurement document flow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errs     *httpx.ErrorMapper
}

// NewHandler constructs the procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		errs: httpx.NewErrorMapper(logger, "procurement request",
			httpx.Mapping{Err: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
			httpx.Mapping{Err: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
			httpx.Mapping{Err: ErrLotNotFound, Status: http.StatusNotFound, Title: "Not Found"},
			httpx.Mapping{Err: ErrInvalidState, Status: http.StatusConflict, Title: "Invalid State"},
			httpx.Mapping{Err: ErrQuantityExceedsOrder, Status: http.StatusConflict, Title: "Quantity Exceeds Order"},
		),
	}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requisitions", func(r chi.Router) {
		r.Get("/", h.handleListRequisitions)
		r.Post("/", h.handleCreateRequisition)
		r.Post("/{id}/approve", h.handleApproveRequisition)
		r.Post("/{id}/reject", h.handleRejectRequisition)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleListOrders)
		r.Post("/", h.handleCreateOrder)
		r.Post("/{id}/approve", h.handleApproveOrder)
		r.Post("/{id}/reject", h.handleRejectOrder)
		r.Get("/{id}/progress", h.handleOrderProgress)
	})
	r.Route("/receipts", func(r chi.Router) {
		r.Get("/", h.handleListReceipts)
		r.Post("/", h.handleCreateReceipt)
	})
}

type requisitionItemRequest struct {
	ItemCode    string  `json:"item_code" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"required"`
}

type createRequisitionRequest struct {
	RequestedBy string                   `json:"requested_by" validate:"required"`
	Items       []requisitionItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	PRItemID      string  `json:"pr_item_id"`
	ItemCode      string  `json:"item_code" validate:"required"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	Unit          string  `json:"unit" validate:"required"`
	Rate          float64 `json:"rate" validate:"gte=0"`
	GSTPercentage float64 `json:"gst_percentage" validate:"gte=0"`
}

type createOrderRequest struct {
	PRIDs  []string           `json:"pr_ids" validate:"required,min=1"`
	Vendor string             `json:"vendor" validate:"required"`
	Items  []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type receiptLineRequest struct {
	POItemID          string  `json:"po_item_id" validate:"required"`
	ReceivedQuantity  float64 `json:"received_quantity" validate:"required,gt=0"`
	ManufacturingDate string  `json:"manufacturing_date" validate:"required"`
	ExpiryDate        string  `json:"expiry_date" validate:"required"`
	InvoiceNo         string  `json:"invoice_no" validate:"required"`
	InvoiceDate       string  `json:"invoice_date" validate:"required"`
}

type createReceiptRequest struct {
	POID  string               `json:"po_id" validate:"required"`
	Lines []receiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleListRequisitions(w http.ResponseWriter, r *http.Request) {
	prs, err := h.service.ListRequisitions(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prs)
}

func (h *Handler) handleCreateRequisition(w http.ResponseWriter, r *http.Request) {
	var req createRequisitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateRequisitionInput{RequestedBy: req.RequestedBy}
	for _, item := range req.Items {
		input.Items = append(input.Items, RequisitionItemInput(item))
	}
	pr, err := h.service.CreateRequisition(r.Context(), input)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) handleApproveRequisition(w http.ResponseWriter, r *http.Request) {
	pr, err := h.service.ApproveRequisition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) handleRejectRequisition(w http.ResponseWriter, r *http.Request) {
	pr, err := h.service.RejectRequisition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateOrderInput{PRIDs: req.PRIDs, Vendor: req.Vendor}
	for _, item := range req.Items {
		input.Items = append(input.Items, OrderItemInput(item))
	}
	po, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) handleApproveOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.ApproveOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleRejectOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.RejectOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleOrderProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.OrderProgressFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}

func (h *Handler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	grs, err := h.service.ListReceipts(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grs)
}

func (h *Handler) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := PostReceiptInput{POID: req.POID}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, ReceiptLineInput(line))
	}
	gr, err := h.service.PostReceipt(r.Context(), input)
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, gr)
}

