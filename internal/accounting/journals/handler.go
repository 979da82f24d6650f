package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-pos/keystone-pos/internal/platform/httpx"
)

// Handler exposes journal endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.post)
	r.Post("/validate", h.validateEntries)
	r.Post("/{id}/void", h.void)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req PostingInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req.PostedBy, _ = strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	entry, err := h.service.PostJournal(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSourceAlreadyLinked) {
			httpx.Problem(w, http.StatusConflict, "Source Conflict", err.Error())
			return
		}
		h.logger.Warn("journal posting rejected",
			slog.String("source_module", req.SourceModule),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) validateEntries(w http.ResponseWriter, r *http.Request) {
	var req ValidateEntriesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	amounts := make([]EntryAmounts, 0, len(req.Entries))
	for _, e := range req.Entries {
		amounts = append(amounts, EntryAmounts{Debit: e.Debit, Credit: e.Credit})
	}
	totals, err := h.service.ValidateEntries(amounts)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "journal id must be a positive integer")
		return
	}
	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	entry, err := h.service.VoidJournal(r.Context(), VoidInput{EntryID: id, ActorID: actorID, Reason: r.URL.Query().Get("reason")})
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			httpx.Problem(w, http.StatusConflict, "Invalid Status", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
