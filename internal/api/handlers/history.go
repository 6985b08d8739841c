package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"climaroute/internal/core"
	"climaroute/internal/types"
)

// AssessmentStore defines the persistence contract for the history handler.
type AssessmentStore interface {
	ListRecent(ctx context.Context, limit int) ([]types.AssessmentRecord, error)
}

// HistoryHandler serves recent persisted assessments. It is only registered
// when a database is configured.
type HistoryHandler struct {
	store  AssessmentStore
	logger *slog.Logger
}

func NewHistoryHandler(store AssessmentStore, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{store: store, logger: logger}
}

func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.HandleListRecent)
}

type historyResponse struct {
	Assessments []types.AssessmentRecord `json:"assessments"`
}

// HandleListRecent handles GET /history?limit=N. The limit is clamped by the
// repository; a malformed value falls back to the default.
func (h *HistoryHandler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, historyResponse{Assessments: records})
}
