package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dfgutierrez/sigr-sales/internal/service"
	"github.com/dfgutierrez/sigr-sales/pkg/httputil"
)

// ReconciliationHandler exposes the stock-deduction follow-up queue.
type ReconciliationHandler struct {
	service *service.ReconciliationService
	logger  *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation HTTP handler.
func NewReconciliationHandler(svc *service.ReconciliationService, logger *slog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: svc,
		logger:  logger,
	}
}

// ListPending handles GET /api/v1/reconciliation
func (h *ReconciliationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: entries})
}

// Resolve handles POST /api/v1/reconciliation/{id}/resolve
func (h *ReconciliationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	op := operatorID(r)
	if op == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "operator identity is required"},
		})
		return
	}

	if err := h.service.Resolve(r.Context(), chi.URLParam(r, "id"), op); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
