package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/external"
	"github.com/fineflow77/btclti/internal/fit"
	"github.com/fineflow77/btclti/internal/position"
	"github.com/fineflow77/btclti/internal/powerlaw"
	"github.com/fineflow77/btclti/internal/simulation"
	"github.com/fineflow77/btclti/internal/store"
)

// maxProjectionYears bounds a single projection request.
const maxProjectionYears = 200

// MarketData is the provider boundary the API reads quotes and history through.
type MarketData interface {
	LatestQuote(ctx context.Context) (domain.SpotQuote, error)
	History(ctx context.Context) ([]domain.PricePoint, error)
	FetchAndStoreQuotes(ctx context.Context) error
}

// Handler provides HTTP endpoints for the projection API.
type Handler struct {
	market MarketData
	now    func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(market MarketData) *Handler {
	return &Handler{market: market, now: time.Now}
}

// GetProjection handles GET /api/v1/projection.
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	variant, err := domain.ParseVariant(q.Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, ok := yearParam(q.Get("from"), h.now().Year())
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid from year")
		return
	}
	to, ok := yearParam(q.Get("to"), simulation.TargetYear)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid to year")
		return
	}
	if to < from || to-from >= maxProjectionYears {
		writeError(w, http.StatusBadRequest, "invalid year range")
		return
	}

	m, err := powerlaw.For(variant)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := m.ProjectYears(from, to)
	if err != nil {
		if errors.Is(err, powerlaw.ErrDayOutOfDomain) {
			writeError(w, http.StatusBadRequest, "year range starts before the genesis block")
			return
		}
		slog.Error("failed to project prices", "from", from, "to", to, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variant": variant,
		"points":  points,
	})
}

// GetPosition handles GET /api/v1/position.
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	variant, err := domain.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.market.LatestQuote(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, external.ErrNoProviders) {
			writeError(w, http.StatusNotFound, "no quote available")
			return
		}
		slog.Error("failed to load latest quote", "error", err)
		writeError(w, http.StatusServiceUnavailable, "quote unavailable")
		return
	}

	report, err := position.ReportQuote(q, variant)
	if err != nil {
		slog.Error("failed to assess quote", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type fitResponse struct {
	RSquared *float64 `json:"rSquared"`
	Points   int      `json:"points"`
}

// GetFit handles GET /api/v1/fit.
func (h *Handler) GetFit(w http.ResponseWriter, r *http.Request) {
	history, err := h.market.History(r.Context())
	if err != nil && !errors.Is(err, external.ErrNoProviders) {
		slog.Error("failed to load price history", "error", err)
		writeError(w, http.StatusServiceUnavailable, "price history unavailable")
		return
	}

	resp := fitResponse{Points: len(history)}
	if r2, ok := fit.RSquared(history); ok {
		resp.RSquared = &r2
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshQuotes handles POST /api/v1/quotes/refresh.
func (h *Handler) RefreshQuotes(w http.ResponseWriter, r *http.Request) {
	if err := h.market.FetchAndStoreQuotes(r.Context()); err != nil {
		slog.Error("failed to refresh quotes", "error", err)
		writeError(w, http.StatusBadGateway, "failed to refresh quotes")
		return
	}
	q, err := h.market.LatestQuote(r.Context())
	if err != nil {
		slog.Error("failed to load refreshed quote", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// yearParam parses an optional year query value.
func yearParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
