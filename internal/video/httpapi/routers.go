package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewRouter(h *Handler, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /me", h.authenticated(h.Me))

	mux.HandleFunc("GET /videos", h.authenticated(h.ListVideos))
	mux.HandleFunc("POST /videos", h.authenticated(h.CreateVideo))
	mux.HandleFunc("GET /videos/{id}", h.authenticated(h.GetVideo))
	mux.HandleFunc("DELETE /videos/{id}", h.authenticated(h.DeleteVideo))
	mux.HandleFunc("GET /videos/{id}/playback", h.authenticated(h.Playback))

	// Signed links carry their own authorization.
	mux.HandleFunc("GET /videos/{id}/stream", h.Stream)

	mux.HandleFunc("GET /stats", h.authenticated(h.Stats))

	var requests *prometheus.CounterVec
	var latency *prometheus.HistogramVec
	if reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visiguard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"})
		latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visiguard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"})
		reg.MustRegister(requests, latency)
	}

	return instrument(mux, h.logger, requests, latency)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs every request and, when given collectors, records them.
func instrument(mux *http.ServeMux, logger zerolog.Logger, requests *prometheus.CounterVec, latency *prometheus.HistogramVec) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if requests != nil {
			requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			latency.WithLabelValues(route).Observe(elapsed.Seconds())
		}

		ev := logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}
