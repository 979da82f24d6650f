package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keystone-pos/keystone-pos/internal/platform/httpx"
)

// Handler exposes reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/income-statement", h.incomeStatement)
	r.Post("/recalculate", h.recalculate)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := dateParam(w, r, "as_of", time.Now())
	if !ok {
		return
	}
	sheet, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.logger.Warn("balance sheet generation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, ok := rangeParams(w, r)
	if !ok {
		return
	}
	statement, err := h.service.IncomeStatement(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	from, to, ok := rangeParams(w, r)
	if !ok {
		return
	}
	statement, err := h.service.Recalculate(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func dateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", name+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func rangeParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, ok := dateParam(w, r, "from", time.Time{})
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := dateParam(w, r, "to", time.Now())
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if from.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Range", "from is required")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Range", "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
