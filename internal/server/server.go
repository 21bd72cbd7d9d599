// Package server wires the PostForge HTTP API: storage, the usage guard,
// the provider router, and the generation pipeline behind a gin router.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/mbd888/postforge/internal/auth"
	"github.com/mbd888/postforge/internal/brandvoice"
	"github.com/mbd888/postforge/internal/circuitbreaker"
	"github.com/mbd888/postforge/internal/config"
	"github.com/mbd888/postforge/internal/generation"
	"github.com/mbd888/postforge/internal/health"
	"github.com/mbd888/postforge/internal/logging"
	"github.com/mbd888/postforge/internal/metrics"
	"github.com/mbd888/postforge/internal/platform"
	"github.com/mbd888/postforge/internal/provider"
	"github.com/mbd888/postforge/internal/ratelimit"
	"github.com/mbd888/postforge/internal/security"
	"github.com/mbd888/postforge/internal/traces"
	"github.com/mbd888/postforge/internal/usage"
	"github.com/mbd888/postforge/internal/validation"
)

// TextGenerator produces platform text. *provider.Router satisfies it; tests
// inject fakes through WithGenerator.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, p platform.Platform, opts provider.CallOptions) (*provider.Result, error)
}

// Server is the PostForge API server
type Server struct {
	cfg *config.Config

	authMgr    *auth.Manager
	guard      *usage.Guard
	generator  TextGenerator
	aiRouter   *provider.Router // nil when a generator is injected
	pipeline   *generation.Pipeline
	extractor  *brandvoice.Extractor
	voiceStore brandvoice.Store
	genStore   generation.Store

	rateLimiter *ratelimit.Limiter
	checks      *health.Registry
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run
	shutdownTraces func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGenerator sets a custom text generator (for testing)
func WithGenerator(g TextGenerator) Option {
	return func(s *Server) {
		s.generator = g
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}

	// Apply options first (may set generator/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	var (
		authStore  auth.Store
		usageStore usage.Store
	)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		aStore := auth.NewPostgresStore(db)
		if err := aStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		authStore = aStore

		uStore := usage.NewPostgresStore(db)
		if err := uStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate usage store", "error", err)
		}
		usageStore = uStore

		vStore := brandvoice.NewPostgresStore(db)
		if err := vStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate brand voice store", "error", err)
		}
		s.voiceStore = vStore

		gStore := generation.NewPostgresStore(db)
		if err := gStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate generation store", "error", err)
		}
		s.genStore = gStore

		s.checks.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		authStore = auth.NewMemoryStore()
		usageStore = usage.NewMemoryStore()
		s.voiceStore = brandvoice.NewMemoryStore()
		s.genStore = generation.NewMemoryStore()
	}

	s.authMgr = auth.NewManager(authStore)
	s.guard = usage.NewGuard(usageStore)

	// Build the provider router unless a generator was injected
	if s.generator == nil {
		names := cfg.ConfiguredProviders()
		clients := make([]provider.Client, 0, len(names))
		for _, name := range names {
			switch name {
			case "openai":
				clients = append(clients, provider.NewOpenAIClient(cfg.ProviderKey(name)))
			case "anthropic":
				clients = append(clients, provider.NewAnthropicClient(cfg.ProviderKey(name)))
			case "gemini":
				clients = append(clients, provider.NewGeminiClient(cfg.ProviderKey(name)))
			}
		}
		if len(clients) == 0 {
			s.logger.Warn("no AI provider credentials configured; generation requests will fail")
		}

		breaker := circuitbreaker.New(3, 30*time.Second)
		breaker.OnTransition(func(key string, from, to circuitbreaker.State) {
			s.logger.Warn("provider circuit state changed",
				"provider", key,
				"from", from.String(),
				"to", to.String(),
			)
		})

		s.aiRouter = provider.NewRouter(clients,
			provider.WithTimeouts(cfg.ProviderTimeout, cfg.PriorityTimeout),
			provider.WithBreaker(breaker),
		)
		s.generator = s.aiRouter
		s.logger.Info("AI providers configured", "providers", names)

		s.checks.Register("providers", func(ctx context.Context) health.Status {
			if len(s.aiRouter.Configured()) == 0 {
				return health.Status{Name: "providers", Healthy: false, Detail: "no provider credentials configured"}
			}
			return health.Status{Name: "providers", Healthy: true}
		})
	}

	s.pipeline = generation.NewPipeline(s.guard, s.voiceStore, s.generator, s.genStore)
	s.extractor = brandvoice.NewExtractor(s.guard, s.generator, s.voiceStore)

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			},
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	authHandler := auth.NewHandler(s.authMgr)
	genHandler := generation.NewHandler(s.pipeline, s.guard, s.genStore)
	voiceHandler := brandvoice.NewHandler(s.voiceStore, s.extractor)
	usageHandler := usage.NewHandler(s.guard)

	// V1 API group. Soft auth resolves the key when present; RequireAuth
	// rejects the request on routes that need an identity.
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.authMgr))

	// Key issuance is the bootstrap path: admin-gated in production,
	// open in demo mode (see auth.RequireAdmin).
	v1.POST("/keys", auth.RequireAdmin(), authHandler.IssueKey)

	protected := v1.Group("")
	protected.Use(auth.RequireAuth())
	{
		genHandler.RegisterRoutes(protected)
		voiceHandler.RegisterRoutes(protected)

		protected.GET("/limits", usageHandler.Limits)

		// API key management
		protected.GET("/keys", authHandler.ListKeys)
		protected.DELETE("/keys/:keyId", authHandler.RevokeKey)
		protected.GET("/me", authHandler.Whoami)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	allHealthy, statuses := s.checks.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	platforms := make([]string, 0, len(platform.All))
	for _, p := range platform.All {
		platforms = append(platforms, string(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        "PostForge",
		"description": "AI-powered social media post generation",
		"version":     "0.1.0",
		"platforms":   platforms,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing (no-op without an OTLP endpoint)
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTraces = shutdownTraces
	}

	// Export connection pool stats while the server runs
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush pending spans
	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
