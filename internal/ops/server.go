package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server exposes operational endpoints for the harness binary: metrics and
// health. It is not part of the synthesis contract; the core stays
// transport-free.
type Server struct {
	srv *http.Server
}

// NewServer builds the ops HTTP server on addr, serving the given registry.
func NewServer(addr string, registry *prometheus.Registry) *Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	return &Server{srv: &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}}
}

// Handler exposes the route tree.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Close. It returns http.ErrServerClosed on shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("ops server listening")
	return s.srv.ListenAndServe()
}

// Close stops the server.
func (s *Server) Close() error {
	return s.srv.Close()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
