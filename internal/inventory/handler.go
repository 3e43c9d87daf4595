package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpilot-erp/stockpilot/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errs     *httpx.ErrorMapper
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		errs: httpx.NewErrorMapper(logger, "ledger request",
			httpx.Mapping{Err: ErrInsufficientStock, Status: http.StatusConflict, Title: "Insufficient Stock"},
			httpx.Mapping{Err: ErrAmbiguousUnit, Status: http.StatusBadRequest, Title: "Validation Failed"},
			httpx.Mapping{Err: ErrInvalidQuantity, Status: http.StatusBadRequest, Title: "Validation Failed"},
			httpx.Mapping{Err: ErrInvalidRate, Status: http.StatusBadRequest, Title: "Validation Failed"},
			httpx.Mapping{Err: ErrEntryNotFound, Status: http.StatusNotFound, Title: "Not Found"},
		),
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.handleSnapshot)
	r.Post("/issues", h.handleIssue)
}

type issueRequest struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

type ledgerEntryResponse struct {
	ItemCode         string  `json:"item_code"`
	Description      string  `json:"description"`
	Unit             string  `json:"unit"`
	GoodQty          float64 `json:"good_qty"`
	DamagedQty       float64 `json:"damaged_qty"`
	TotalValue       float64 `json:"total_value"`
	WeightedAvgPrice float64 `json:"weighted_avg_price"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Issue(r.Context(), IssueInput{ItemCode: req.ItemCode, Unit: req.Unit, Qty: req.Quantity})
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	h.logger.Info("stock issued",
		slog.String("item_code", req.ItemCode),
		slog.Float64("qty", req.Quantity))
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func toEntryResponse(entry LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ItemCode:         entry.ItemCode,
		Description:      entry.Description,
		Unit:             entry.Unit,
		GoodQty:          entry.GoodQty,
		DamagedQty:       entry.DamagedQty,
		TotalValue:       entry.TotalValue,
		WeightedAvgPrice: entry.WeightedAvgPrice,
	}
}
