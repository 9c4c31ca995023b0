package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// RunHandler serves run metadata, fills, and equity curves.
type RunHandler struct {
	runs   domain.RunStore
	fills  domain.FillStore
	equity domain.EquityStore
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler backed by the given stores.
func NewRunHandler(runs domain.RunStore, fills domain.FillStore, equity domain.EquityStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		fills:  fills,
		equity: equity,
		logger: logger.With(slog.String("handler", "runs")),
	}
}

// ListRuns returns recent runs, newest first.
// GET /api/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.Error("list runs", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun returns a single run by id.
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.runs.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("get run", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListFills returns a run's fills in execution order.
// GET /api/runs/{id}/fills
func (h *RunHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fills, err := h.fills.ListByRun(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.Error("list fills", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list fills")
		return
	}
	count, err := h.fills.CountByRun(r.Context(), id)
	if err != nil {
		h.logger.Error("count fills", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to count fills")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fills": fills, "total": count})
}

// ListEquity returns a run's full equity curve.
// GET /api/runs/{id}/equity
func (h *RunHandler) ListEquity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	points, err := h.equity.ListByRun(r.Context(), id)
	if err != nil {
		h.logger.Error("list equity", slog.String("run_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list equity points")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equity": points})
}
