package pricingsvc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

const maxRequestBytes = 1 << 20

// NewRouter exposes svc over HTTP:
//
//	POST /v1/price  PriceRequest -> PriceResponse
//	GET  /healthz
//	GET  /metrics   (only when reg is non-nil)
func NewRouter(svc *Service, reg *prometheus.Registry) http.Handler {
	errs := ferrors.NewHTTPErrorAdapter(svc.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(reg))
	}

	r.Post("/v1/price", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		var body pricing.PriceRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
		if err := dec.Decode(&body); err != nil {
			err = ferrors.WrapError(err, ferrors.CategoryValidation, "invalid price request").Build()
			svc.observe("http", start, pricing.Result{}, err)
			errs.WriteErrorResponse(w, req, err)
			return
		}

		res, err := svc.Price(req.Context(), body)
		svc.observe("http", start, res, err)
		if err != nil {
			errs.WriteErrorResponse(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, pricing.NewPriceResponse(res))
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
