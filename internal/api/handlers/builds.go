package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iMitio/spacetraveling/internal/models"
	"github.com/iMitio/spacetraveling/internal/storage"
)

// GetBuilds handles GET /api/builds. It returns the most recent static
// builds, limited by the "limit" query parameter (default 10).
func GetBuilds(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseCount(r, "limit", 10, 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		runs, err := store.GetRecentBuildRuns(r.Context(), limit)
		if err != nil {
			slog.Error("failed to get build runs", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get build runs")
			return
		}

		if runs == nil {
			runs = []models.BuildRun{}
		}

		writeJSON(w, http.StatusOK, runs)
	}
}

// Health handles GET /healthz.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
