package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/certgw/internal/health"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// Server runs the API listener and the metrics listener.
type Server struct {
	config      *Config
	engine      *gin.Engine
	logger      observability.Logger
	metrics     *observability.Metrics
	checker     *health.Checker
	rateLimiter *RateLimiter

	mu         sync.Mutex
	apiServer  *http.Server
	metricsSrv *http.Server
}

// Option is a functional option for the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the HTTP metrics and enables /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithHealthChecker enables /health, /ready and /live.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.checker = checker
	}
}

// WithRateLimit limits the protected routes per client address.
func WithRateLimit(cfg *RateLimitConfig) Option {
	return func(s *Server) {
		if cfg != nil && cfg.Enabled {
			s.rateLimiter = NewRateLimiter(cfg)
		}
	}
}

// New creates a server serving handlers.
func New(config *Config, handlers *Handlers, opts ...Option) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if handlers == nil {
		return nil, errors.New("handlers are required")
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		config: config,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.ContextWithFallback = true
	engine.Use(RequestID(), Tracing(), Logging(s.logger, s.metrics), Recovery(s.logger))
	if config.MaxRequestBodySize > 0 {
		engine.Use(MaxBodySize(config.MaxRequestBodySize))
	}
	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, StatusError{
			ErrorCode:    http.StatusNotFound,
			ErrorMessage: "Not found",
		})
	})

	var protected gin.IRouter = engine
	if s.rateLimiter != nil {
		protected = engine.Group("", RateLimit(s.rateLimiter, s.logger, s.metrics))
	}
	handlers.Register(protected)

	s.engine = engine
	return s, nil
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// MetricsHandler returns the handler of the metrics listener.
func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	if s.checker != nil {
		mux.HandleFunc("/health", s.checker.HealthHandler())
		mux.HandleFunc("/ready", s.checker.ReadinessHandler())
		mux.HandleFunc("/live", s.checker.LivenessHandler())
	}
	return mux
}

// Start listens on the configured ports and blocks until the first listener
// stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	tlsConfig, err := s.config.TLS.BuildTLSConfig()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.apiServer = &http.Server{
		Addr:         net.JoinHostPort(s.config.Address, fmt.Sprint(s.config.Port)),
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		TLSConfig:    tlsConfig,
	}
	if s.config.MetricsPort > 0 {
		s.metricsSrv = &http.Server{
			Addr:        net.JoinHostPort(s.config.Address, fmt.Sprint(s.config.MetricsPort)),
			Handler:     s.MetricsHandler(),
			ReadTimeout: s.config.ReadTimeout,
		}
	}
	apiServer, metricsSrv := s.apiServer, s.metricsSrv
	s.mu.Unlock()

	if s.rateLimiter != nil {
		s.rateLimiter.StartCleanup()
	}

	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("starting API server",
			observability.String("address", apiServer.Addr),
			observability.Bool("tls", tlsConfig != nil),
		)
		var err error
		if tlsConfig != nil {
			err = apiServer.ListenAndServeTLS("", "")
		} else {
			err = apiServer.ListenAndServe()
		}
		errCh <- listenerResult("api server", err)
	}()

	if metricsSrv != nil {
		go func() {
			s.logger.Info("starting metrics server", observability.String("address", metricsSrv.Addr))
			errCh <- listenerResult("metrics server", metricsSrv.ListenAndServe())
		}()
	}

	return <-errCh
}

func listenerResult(name string, err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// Stop shuts both listeners down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.checker != nil {
		s.checker.SetDraining(true)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.mu.Lock()
	apiServer, metricsSrv := s.apiServer, s.metricsSrv
	s.mu.Unlock()

	var errs []error
	if apiServer != nil {
		if err := apiServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown api server: %w", err))
		}
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
		}
	}

	s.logger.Info("HTTP servers stopped")
	return errors.Join(errs...)
}
