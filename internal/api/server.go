package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/services/metrics"
)

// Store is the flat-file storage used by the handlers
type Store interface {
	Save(p *product.Product) error
	Load(id string) (*product.Product, error)
	LoadMeta(id string) (*product.Product, error)
	List() ([]string, error)
	Exists(id string) bool
}

// Server serves stored products and on-demand extraction
type Server struct {
	mux       *chi.Mux
	extractor product.ProductExtractor
	store     Store
	log       zerolog.Logger
}

// New builds the router. reg may be nil to disable /metrics.
func New(extractor product.ProductExtractor, store Store, reg *prometheus.Registry, log zerolog.Logger) *Server {
	s := &Server{
		mux:       chi.NewRouter(),
		extractor: extractor,
		store:     store,
		log:       log,
	}

	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.Recoverer)
	s.mux.Use(requestLogger(log))

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if reg != nil {
		s.mux.Handle("/metrics", metrics.Handler(reg))
	}
	s.mux.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Get("/{id}", s.getProduct)
		r.Get("/{id}/opinions", s.getOpinions)
		r.Post("/{id}/extract", s.extractProduct)
	})
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// NewHTTPServer wraps the handler with the timeouts used in production
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			l.Info().
				Str("route", route).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}
