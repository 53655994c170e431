package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Relay/lib/sl"
)

const namespace = "relay"

var (
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Inbound chat messages by kind.",
	}, []string{"kind"})
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Menu actions handled, by action.",
	}, []string{"action"})
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Failed event handling, by stage.",
	}, []string{"stage"})
	ContextTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "context_tokens",
		Help:      "Context size in tokens after each merge.",
		Buckets:   []float64{100, 1000, 4000, 16000, 32000, 64000, 128000, 256000},
	})
)

// Server exposes the default registry on /metrics.
type Server struct {
	srv  *http.Server
	addr net.Addr
	log  *slog.Logger
}

func NewServer(bind string, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              bind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.With(sl.Module("metrics")),
	}
}

// Start listens in the background; a bind failure is returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.addr = ln.Addr()
	s.log.With(slog.String("bind", s.addr.String())).Info("metrics listening")
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", sl.Err(err))
		}
	}()
	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
