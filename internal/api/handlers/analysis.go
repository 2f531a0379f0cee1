package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/wonny/portfolio-analyzer/internal/analysis"
	"github.com/wonny/portfolio-analyzer/internal/analysisconfig"
	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/portfolio"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// AnalysisHandler handles metrics, optimisation and backtest endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type AnalysisHandler struct {
	orchestrator *analysis.Orchestrator
	defaults     analysisconfig.Defaults
	logger       *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
// defaults fill fields a request body leaves out.
func NewAnalysisHandler(orchestrator *analysis.Orchestrator, defaults analysisconfig.Defaults, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		defaults:     defaults,
		logger:       log,
	}
}

// Metrics returns per-asset metrics against the benchmark
// POST /api/metrics
func (h *AnalysisHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orchestrator.Metrics(r.Context(), cfg)
	if err != nil {
		h.fail(w, err, "Failed to estimate metrics")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Optimize returns the weight vector of an objective
// POST /api/optimize/{objective}
func (h *AnalysisHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	objective := mux.Vars(r)["objective"]
	if !portfolio.ValidMode(objective) {
		respondError(w, http.StatusNotFound, "unknown objective: "+objective)
		return
	}

	cfg, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orchestrator.Optimize(r.Context(), cfg, objective)
	if err != nil {
		h.fail(w, err, "Failed to optimize portfolio")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Backtest compounds the configured portfolio
// POST /api/backtest
func (h *AnalysisHandler) Backtest(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orchestrator.Backtest(r.Context(), cfg)
	if err != nil {
		h.fail(w, err, "Failed to run backtest")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// decode reads an analysis config from the request body
func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request) (*analysisconfig.Config, bool) {
	var cfg analysisconfig.Config
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}

	cfg.Inherit(h.defaults)
	if err := analysisconfig.Prepare(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &cfg, true
}

// fail maps analysis errors to HTTP status codes
func (h *AnalysisHandler) fail(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contracts.ErrNumericalInstability),
		errors.Is(err, contracts.ErrArithmetic),
		errors.Is(err, contracts.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	h.logger.WithError(err).WithField("status", status).Error(msg)
	respondError(w, status, msg+": "+err.Error())
}
