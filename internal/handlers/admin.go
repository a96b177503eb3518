package handlers

import (
	"net/http"

	"github.com/velvethub/backend/internal/logging"
)

// AdminHandler exposes maintenance operations behind the admin key.
type AdminHandler struct {
	Reconciler DurationReconciler
}

// ReconcileDurations handles POST /api/v1/admin/reconcile-durations. It runs
// the full sweep synchronously and reports what each pending row resolved to.
func (h AdminHandler) ReconcileDurations(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "reconcile_durations")
	defer span.End()
	logger := logging.FromContext(ctx)

	if h.Reconciler == nil {
		respondError(ctx, w, http.StatusInternalServerError, "reconciliation services unavailable")
		return
	}

	summary, err := h.Reconciler.Sweep(ctx)
	if err != nil {
		logger.Error("duration reconciliation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "duration reconciliation failed")
		return
	}

	logger.Info("duration reconciliation finished",
		"total", summary.Total,
		"updated", summary.Updated,
		"stillProcessing", summary.StillProcessing,
		"failed", summary.Failed)
	respondJSON(ctx, w, http.StatusOK, summary)
}
