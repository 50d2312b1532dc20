// Package api serves the dashboard over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/naming"
	"github.com/zest-protocol/dashboard/payment"
	"github.com/zest-protocol/dashboard/protocol"
	"github.com/zest-protocol/dashboard/queue"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/verification"
)

// JobStatus reports the state of a background job.
type JobStatus interface {
	Status(id string) (queue.Status, bool)
}

// Services are the handlers' collaborators. A nil service leaves its
// routes unmounted.
type Services struct {
	Payments  *payment.Service
	Naming    *naming.Service
	Ledger    *settlement.Ledger
	CDP       *protocol.CDPService
	Stability *protocol.StabilityService
	Swap      *protocol.SwapService
	Prices    *protocol.PriceFeed
	KYC       *verification.Service
	Jobs      JobStatus
	// Ping backs /healthz. Nil always reports healthy.
	Ping func(ctx context.Context) error
}

// Config tunes the router.
type Config struct {
	Logger         logger.Logger
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	RateLimitRPS   float64
	RateLimitBurst int
}

type handler struct {
	Services
	log logger.Logger
}

// NewRouter builds the HTTP handler for s.
func NewRouter(s Services, cfg Config) http.Handler {
	h := &handler{Services: s, log: logger.OrNoop(cfg.Logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(h.log, metrics.OrNoop(cfg.Metrics)))

	r.Get("/healthz", h.health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		if s.Payments != nil {
			r.Route("/payment", h.paymentRoutes)
		}
		if s.Naming != nil {
			r.Route("/ens", h.namingRoutes)
		}
		if s.Ledger != nil {
			r.Route("/transactions", h.ledgerRoutes)
		}
		if s.CDP != nil {
			r.Route("/cdp", h.cdpRoutes)
		}
		if s.Stability != nil {
			r.Route("/stability-pool", h.stabilityRoutes)
		}
		if s.Swap != nil {
			r.Route("/swap", h.swapRoutes)
		}
		if s.Prices != nil {
			r.Route("/price-feed", h.priceRoutes)
		}
		if s.KYC != nil {
			r.Route("/kyc", h.kycRoutes)
		}
		if s.Jobs != nil {
			r.Get("/jobs/{id}", h.jobStatus)
		}
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			h.log.Warn("health check failed", map[string]any{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := h.Jobs.Status(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "job not found", Code: types.ErrNotFound})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"jobId": id, "status": string(status)})
}
