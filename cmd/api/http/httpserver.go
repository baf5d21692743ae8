package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "books-catalog"

type ServerConfig struct {
	Port int

	// Registry enables the metrics middleware. MetricsEnabled also exposes it on /metrics.
	Registry       *prometheus.Registry
	MetricsEnabled bool
}

func NewServer(config ServerConfig, h *BookHandler) *http.Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogging(h.log))

	if config.Registry != nil {
		metrics := NewMetrics(config.Registry)
		h.metrics = metrics
		r.Use(metrics.Middleware(serviceName, routePatternOrPath))
		if config.MetricsEnabled {
			r.Handle("/metrics", promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/ping", ping)
	r.Route("/books", func(r chi.Router) {
		r.Use(h.withTimeout)
		r.Post("/", h.addBook)
		r.Get("/", h.listBooks)
		r.Get("/titles", h.titles)
		r.Get("/total-price", h.totalPrice)
		r.Get("/cheapest", h.cheapest)
		r.Get("/summary", h.summary)
		r.Get("/{id}", h.getEntry)
	})

	server := http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &server
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func requestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func routePatternOrPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if rp := rctx.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}
