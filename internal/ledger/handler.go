package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-pos/keystone-pos/internal/platform/httpx"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.recordTransaction)
	r.Post("/transactions/{id}/cancel", h.cancelTransaction)
	r.Get("/{entityType}/{entityID}/balance", h.getBalance)
	r.Post("/{entityType}/{entityID}/refresh", h.refreshBalance)
	r.Post("/{entityType}/{entityID}/validate-edit", h.validateEdit)
	r.Post("/customers/{entityID}/credit-check", h.creditCheck)
}

func (h *Handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := RecordInput{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Type:       req.Type,
		Amount:     req.Amount,
		Note:       req.Note,
		ActorID:    actorFromRequest(r),
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}
	result, err := h.service.RecordTransaction(r.Context(), input)
	if err != nil {
		h.logger.Warn("ledger record rejected",
			slog.String("entity_type", string(req.EntityType)),
			slog.Int64("entity_id", req.EntityID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "transaction id must be a positive integer")
		return
	}
	balance, err := h.service.CancelTransaction(r.Context(), id, actorFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	balance, err := h.service.AuthoritativeBalance(r.Context(), entityType, entityID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) refreshBalance(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	balance, err := h.service.RefreshEntityBalance(r.Context(), entityType, entityID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) validateEdit(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	var patch BalancePatchRequest
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := ValidateBalanceEdit(entityType, entityID, patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": true})
}

func (h *Handler) creditCheck(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil || entityID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "customer id must be a positive integer")
		return
	}
	var req CreditCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	check, err := h.service.ValidateCreditLimit(r.Context(), entityID, req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, check)
}

func (h *Handler) entityParams(w http.ResponseWriter, r *http.Request) (EntityType, int64, bool) {
	entityType := EntityType(strings.ToUpper(chi.URLParam(r, "entityType")))
	if entityType != EntityCustomer && entityType != EntitySupplier {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Entity", "entity type must be customer or supplier")
		return "", 0, false
	}
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil || entityID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Entity", "entity id must be a positive integer")
		return "", 0, false
	}
	return entityType, entityID, true
}

func actorFromRequest(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
