package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/alphadesk/tradedash/internal/dashboard"
	"github.com/alphadesk/tradedash/internal/runner"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// DashboardHandler serves the dashboard page and its JSON API
// ⭐ SSOT: 대시보드 API 핸들러는 이 구조체에서만
type DashboardHandler struct {
	service *dashboard.Service
	runs    runner.RunStore
	logger  *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler. runs may be nil.
func NewDashboardHandler(svc *dashboard.Service, runs runner.RunStore, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		runs:    runs,
		logger:  log,
	}
}

// Page renders the HTML dashboard
// GET /?source=remote|local|latest|dataset
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	source := h.source(r)

	var buf bytes.Buffer
	status := http.StatusOK

	view, err := h.service.Build(r.Context(), source)
	if err != nil {
		status = dashboard.StatusCode(err)
		h.logBuildError(err, source, status)
		err = dashboard.RenderError(&buf, dashboard.Message(err), h.service.Sources(), source)
	} else {
		err = dashboard.Render(&buf, view)
	}

	if err != nil {
		h.logger.WithError(err).Error("Failed to render dashboard")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// View returns the full view as JSON
// GET /api/view
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	source := h.source(r)

	view, err := h.service.Build(r.Context(), source)
	if err != nil {
		status := dashboard.StatusCode(err)
		h.logBuildError(err, source, status)
		respondError(w, status, dashboard.Message(err))
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// KPIResponse is the cards-only payload
type KPIResponse struct {
	Source      string      `json:"source"`
	SourceLabel string      `json:"source_label"`
	Summary     interface{} `json:"summary"`
	Cards       interface{} `json:"cards"`
}

// KPIs returns the metric cards
// GET /api/kpis
func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	source := h.source(r)

	view, err := h.service.Build(r.Context(), source)
	if err != nil {
		status := dashboard.StatusCode(err)
		h.logBuildError(err, source, status)
		respondError(w, status, dashboard.Message(err))
		return
	}

	respondJSON(w, http.StatusOK, KPIResponse{
		Source:      view.Source,
		SourceLabel: view.SourceLabel,
		Summary:     view.Summary,
		Cards:       view.Cards,
	})
}

// Trend returns the historical Sharpe series with skipped-file warnings
// GET /api/trend
func (h *DashboardHandler) Trend(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Trend(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to scan trend")
		respondError(w, http.StatusInternalServerError, "Failed to scan runs directory")
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Runs returns recent batch runs, newest first
// GET /api/runs?limit=20
func (h *DashboardHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := runner.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = n
	}

	if h.runs == nil {
		respondJSON(w, http.StatusOK, []runner.RunRecord{})
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}
	if runs == nil {
		runs = []runner.RunRecord{}
	}

	respondJSON(w, http.StatusOK, runs)
}

func (h *DashboardHandler) source(r *http.Request) string {
	if s := r.URL.Query().Get("source"); s != "" {
		return s
	}
	return h.service.DefaultSource()
}

func (h *DashboardHandler) logBuildError(err error, source string, status int) {
	log := h.logger.WithError(err).WithFields(map[string]interface{}{
		"source": source,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		log.Error("Failed to build dashboard view")
	} else {
		log.Warn("Dashboard view unavailable")
	}
}
