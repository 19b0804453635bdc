package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/domain/controlplane"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fsplane/internal/shared/types"
)

// Plane is the part of the control plane the admin surface reads
type Plane interface {
	State() controlplane.State
	Statistics() (types.Statistics, error)
	Volumes() ([]types.VolumeRoot, error)
	WatchedRoots() ([]string, error)
	AccessLog(limit int) ([]types.AccessLogEntry, error)
}

// Server is the admin HTTP listener
type Server struct {
	router  *gin.Engine
	http    *http.Server
	plane   Plane
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// New builds the admin server. It does not listen until Run.
func New(cfg config.ServerConfig, plane Plane, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	corsCfg := DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.AllowOrigins

	limits := DefaultRateLimitConfig()
	if cfg.RateLimit > 0 {
		limits.RequestsPerSecond = cfg.RateLimit
	}
	if cfg.Burst > 0 {
		limits.Burst = cfg.Burst
	}

	tracer := tracing.New("fsplane-admin", logger.Named("trace"))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(RequestLogger(logger))
	router.Use(CORS(corsCfg))
	router.Use(RateLimit(limits))

	s := &Server{
		router:  router,
		plane:   plane,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}

	router.GET("/health", s.health)
	router.GET("/stats", s.stats)
	router.GET("/volumes", s.volumes)
	router.GET("/watched", s.watched)
	router.GET("/access-log", s.accessLog)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until Shutdown. A clean shutdown returns nil.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Admin server listening", zap.String("addr", ln.Addr().String()))
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.tracer.Close()
	return err
}
