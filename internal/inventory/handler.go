package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-pos/keystone-pos/internal/platform/httpx"
)

// Handler exposes inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.postMovement)
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/release", h.release)
	r.Get("/records/{productID}", h.getRecord)
	r.Get("/records/{productID}/check", h.checkStock)
	r.Get("/records/{productID}/movements", h.listMovements)
}

func (h *Handler) checkStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product", "product id must be a positive integer")
		return
	}
	change, err := strconv.ParseInt(r.URL.Query().Get("change"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Change", "change must be a signed integer")
		return
	}
	movementType := MovementType(r.URL.Query().Get("type"))
	if movementType == "" {
		movementType = MovementAdjust
	}
	check, err := h.service.CheckProposed(r.Context(), StockUpdate{
		ProductID:      productID,
		QuantityChange: change,
		Type:           movementType,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"current_stock":   check.CurrentStock,
		"reserved_stock":  check.ReservedStock,
		"available_stock": check.AvailableStock,
		"new_stock":       check.NewStock,
	})
}

func (h *Handler) postMovement(w http.ResponseWriter, r *http.Request) {
	var req PostMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID := actorFromRequest(r)
	var (
		rec Record
		err error
	)
	switch req.Type {
	case MovementIn:
		rec, err = h.service.PostInbound(r.Context(), InboundInput{
			Code: req.Code, ProductID: req.ProductID, Quantity: req.Quantity,
			UnitCost: req.UnitCost, Note: req.Note, ActorID: actorID,
			RefModule: req.RefModule, RefID: req.RefID,
		})
	case MovementOut:
		rec, err = h.service.PostOutbound(r.Context(), OutboundInput{
			Code: req.Code, ProductID: req.ProductID, Quantity: req.Quantity,
			Note: req.Note, ActorID: actorID,
			RefModule: req.RefModule, RefID: req.RefID,
		})
	default:
		rec, err = h.service.PostAdjustment(r.Context(), AdjustmentInput{
			Code: req.Code, ProductID: req.ProductID, Quantity: req.Quantity,
			UnitCost: req.UnitCost, AllowNegative: req.AllowNegative,
			Note: req.Note, ActorID: actorID,
			RefModule: req.RefModule, RefID: req.RefID,
		})
	}
	if err != nil {
		h.logger.Warn("movement rejected", slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	h.changeReservation(w, r, false)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.changeReservation(w, r, true)
}

func (h *Handler) changeReservation(w http.ResponseWriter, r *http.Request, release bool) {
	var req ReservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID := actorFromRequest(r)
	var (
		rec Record
		err error
	)
	if release {
		rec, err = h.service.Release(r.Context(), req.ProductID, req.Quantity, actorID, req.Ref)
	} else {
		rec, err = h.service.Reserve(r.Context(), req.ProductID, req.Quantity, actorID, req.Ref)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product", "product id must be a positive integer")
		return
	}
	rec, err := h.service.GetRecord(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product", "product id must be a positive integer")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListMovements(r.Context(), MovementFilter{ProductID: productID, Limit: limit})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

// actorFromRequest resolves the acting user from the X-Actor-ID header set
// by the authenticating proxy. Authentication itself lives outside this
// service.
func actorFromRequest(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
