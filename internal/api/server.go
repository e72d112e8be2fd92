package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fineflow77/btclti/internal/metrics"
)

type ctxKey int

const requestIDKey ctxKey = iota

const requestIDHeader = "X-Request-ID"

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, market MarketData, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(NewHandler(market), adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter registers every route on a fresh mux wrapped in the request-id middleware.
func NewRouter(handler *Handler, adminAPIKey string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projection", handler.GetProjection)
	mux.HandleFunc("GET /api/v1/position", handler.GetPosition)
	mux.HandleFunc("GET /api/v1/fit", handler.GetFit)
	mux.HandleFunc("POST /api/v1/simulations/accumulation", handler.RunAccumulation)
	mux.HandleFunc("POST /api/v1/simulations/decumulation", handler.RunDecumulation)
	mux.Handle("GET /metrics", metrics.Handler())

	refreshHandler := http.HandlerFunc(handler.RefreshQuotes)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/quotes/refresh", requireAuth(adminAPIKey, refreshHandler))
	} else {
		slog.Warn("ADMIN_API_KEY not set, quote refresh endpoint is unprotected")
		mux.Handle("POST /api/v1/quotes/refresh", refreshHandler)
	}

	return withRequestID(mux)
}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		slog.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
