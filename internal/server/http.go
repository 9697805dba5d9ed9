package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

const (
	// DefaultAddr is the default address of the trigger server.
	DefaultAddr = ":8080"

	// DefaultReadTimeout bounds reading a request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds a whole POST /process run.
	DefaultWriteTimeout = 15 * time.Minute
)

// HTTPServerConfig configures the trigger server.
type HTTPServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// HTTPServer serves POST /process and the health endpoints.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer creates the trigger server for sc.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	health := NewHealthChecker(sc)
	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           NewHandler(sc, health, config.Logger, config.Metrics),
			ReadHeaderTimeout: config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       DefaultMetricsIdleTimeout,
		},
		health: health,
		logger: config.Logger,
	}
}

// NewHandler builds the routes of the trigger server wrapped in the request
// metrics middleware.
func NewHandler(sc *ServerContext, health *HealthChecker, logger *slog.Logger, metrics *instrumentation.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /process", ProcessHandler(sc, logger))
	health.RegisterHealthEndpoints(mux)
	return metricsMiddleware(mux, metrics)
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("starting http server", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Addr returns the bound address once started, else the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down http server")
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler, metrics *instrumentation.Metrics) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, instrumentation.NormalizePath(r.URL.Path), rec.status, time.Since(start))
	})
}
