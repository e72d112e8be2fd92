package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fineflow77/btclti/internal/metrics"
	"github.com/fineflow77/btclti/internal/simulation"
)

// maxBodyBytes caps simulation request bodies.
const maxBodyBytes = 1 << 16

type accumulationRequest struct {
	simulation.AccumulationInput
	AsOfYear *int `json:"asOfYear,omitempty"`
}

type decumulationRequest struct {
	simulation.DecumulationInput
	AsOfYear *int `json:"asOfYear,omitempty"`
}

type simulationResponse[T any] struct {
	AsOfYear int `json:"asOfYear"`
	Records  []T `json:"records"`
}

// RunAccumulation handles POST /api/v1/simulations/accumulation.
func (h *Handler) RunAccumulation(w http.ResponseWriter, r *http.Request) {
	var req accumulationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asOf := h.asOfYear(req.AsOfYear)

	start := time.Now()
	records, err := simulation.RunAccumulation(req.AccumulationInput, asOf)
	respondSimulation(w, "accumulation", start, asOf, records, err)
}

// RunDecumulation handles POST /api/v1/simulations/decumulation.
func (h *Handler) RunDecumulation(w http.ResponseWriter, r *http.Request) {
	var req decumulationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asOf := h.asOfYear(req.AsOfYear)

	start := time.Now()
	records, err := simulation.RunDecumulation(req.DecumulationInput, asOf)
	respondSimulation(w, "decumulation", start, asOf, records, err)
}

// asOfYear prefers the year sent by the client over the server clock.
func (h *Handler) asOfYear(requested *int) int {
	if requested != nil {
		return *requested
	}
	return h.now().Year()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func respondSimulation[T any](w http.ResponseWriter, kind string, start time.Time, asOf int, records []T, err error) {
	var (
		ve *simulation.ValidationError
		ce *simulation.ComputationError
	)
	switch {
	case err == nil:
		metrics.RecordSimulation(kind, metrics.OutcomeOK, time.Since(start))
		writeJSON(w, http.StatusOK, simulationResponse[T]{AsOfYear: asOf, Records: records})
	case errors.As(err, &ve):
		metrics.RecordSimulation(kind, metrics.OutcomeInvalid, time.Since(start))
		slog.Warn("simulation rejected", "kind", kind, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, ve)
	case errors.As(err, &ce):
		metrics.RecordSimulation(kind, metrics.OutcomeComputation, time.Since(start))
		slog.Warn("simulation failed", "kind", kind, "year", ce.Year, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, ce)
	default:
		slog.Error("simulation error", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
