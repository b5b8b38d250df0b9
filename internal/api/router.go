// Package api wires the read-only HTTP façade over the ledger.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/clearledger/internal/api/handlers"
	"github.com/dvloznov/clearledger/internal/api/middleware"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Store     handlers.LedgerReader
	Log       zerolog.Logger
	Registry  *prometheus.Registry
	StaticDir string // optional frontend served at /
}

// NewRouter builds the HTTP handler with the full middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics := middleware.NewMetrics(registry)
	companies := handlers.NewCompaniesHandler(cfg.Store, cfg.Log)

	mux := http.NewServeMux()

	// Company endpoints
	mux.HandleFunc("GET /companies", companies.ListCompanies)
	mux.HandleFunc("GET /companies/{companyID}/transactions", companies.ListTransactions)
	mux.HandleFunc("GET /companies/{companyID}/summary", companies.Summary)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	// Apply middleware
	return middleware.Recovery(cfg.Log)(
		middleware.Logger(cfg.Log)(
			middleware.RequestID(
				middleware.CORS(
					metrics.Handler(mux),
				),
			),
		),
	)
}
