package quality

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpilot-erp/stockpilot/internal/platform/httpx"
	"github.com/stockpilot-erp/stockpilot/internal/procurement"
)

// Handler wires HTTP endpoints for QA dispositions.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errs     *httpx.ErrorMapper
}

// NewHandler constructs the quality handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		errs: httpx.NewErrorMapper(logger, "quality request",
			httpx.Mapping{Err: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
			httpx.Mapping{Err: procurement.ErrLotNotFound, Status: http.StatusNotFound, Title: "Not Found"},
			httpx.Mapping{Err: ErrQuantityMismatch, Status: http.StatusConflict, Title: "Quantity Mismatch"},
			httpx.Mapping{Err: ErrAlreadyDisposed, Status: http.StatusConflict, Title: "Already Disposed"},
		),
	}
}

// MountRoutes registers quality routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lots", h.handlePendingLots)
	r.Get("/dispositions", h.handleListDispositions)
	r.Post("/dispositions", h.handleDispose)
}

type disposeRequest struct {
	LotNo            string  `json:"lot_no" validate:"required"`
	PassQty          float64 `json:"pass_qty" validate:"gte=0"`
	DamageQty        float64 `json:"damage_qty" validate:"gte=0"`
	ShelfLifeFailQty float64 `json:"shelf_life_fail_qty" validate:"gte=0"`
	ExpiryFailQty    float64 `json:"expiry_fail_qty" validate:"gte=0"`
	Remark           string  `json:"remark" validate:"required"`
}

func (h *Handler) handlePendingLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.service.PendingLots(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lots)
}

func (h *Handler) handleListDispositions(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListDispositions(r.Context())
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) handleDispose(w http.ResponseWriter, r *http.Request) {
	var req disposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	record, err := h.service.DisposeLot(r.Context(), DisposeInput(req))
	if err != nil {
		h.errs.Respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

