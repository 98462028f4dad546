// Package server wires configuration, logging, metrics, the resolution
// engine, and the HTTP routes into a runnable service.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/adverify/geolander/internal/api/http"
	"github.com/adverify/geolander/internal/api/middleware"
	"github.com/adverify/geolander/internal/config"
	"github.com/adverify/geolander/internal/geo"
	"github.com/adverify/geolander/internal/logging"
	"github.com/adverify/geolander/internal/monitoring"
	"github.com/adverify/geolander/internal/proxy"
	"github.com/adverify/geolander/internal/region"
	"github.com/adverify/geolander/internal/resolver"
)

// Server wraps the HTTP router and its dependencies.
type Server struct {
	router  *gin.Engine
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, err
		}
		logger = l
	}

	logger.Info("initializing geolander",
		zap.String("port", cfg.Server.Port),
		zap.String("proxy_host", cfg.Proxy.Host),
		zap.Bool("proxy_password_set", cfg.Proxy.Password != ""),
	)

	metrics := monitoring.NewMetrics()

	registry := region.NewRegistry(cfg.Proxy.Zones.Map(), logger)
	logger.Info("region registry built",
		zap.Strings("configured", registry.Codes()),
		zap.Strings("unconfigured", registry.Unconfigured()),
	)

	builder := proxy.NewBuilder(registry, cfg.Proxy.Password, cfg.Proxy.Host, cfg.Proxy.Port)
	engine := resolver.New(builder, resolver.RemoteFactory{}, logger, resolver.Config{
		ConnectTimeout: cfg.Browser.ConnectTimeout,
		NavTimeout:     cfg.Browser.NavTimeout,
		ReadyTimeout:   cfg.Browser.ReadyTimeout,
		GeoLookupURL:   cfg.Browser.GeoLookupURL,
		UserAgent:      cfg.Browser.UserAgent,
	})
	prober := geo.NewClient(cfg.Browser.GeoLookupURL)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(engine, registry, prober, metrics, logger, cfg.Proxy.Password != "")

	router.GET("/resolve", handlers.Resolve)
	router.GET("/regions", handlers.Regions)
	router.GET("/health", handlers.Health)
	router.GET("/health-check", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("server initialized")

	return &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close flushes the logger. Remote browser sessions are per-request and
// hold no process-wide state to release.
func (s *Server) Close() error {
	s.logger.Info("shutting down")
	s.logger.Sync()
	return nil
}
