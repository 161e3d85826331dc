package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"expensemanager/internal/auth"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/middleware/ratelimit"
	"expensemanager/internal/middleware/security"
	"expensemanager/internal/middleware/trace"
	"expensemanager/internal/ports"
	"expensemanager/internal/services"
)

// Options configures the transport.
type Options struct {
	Addr               string
	CORSAllowedOrigin  string
	RateLimitPerMinute int
}

// Deps are the application services behind the routes.
type Deps struct {
	Expenses *services.ExpenseService
	Auth     *auth.Manager
	Summary  *services.SummaryJob
	ErrorLog ports.ErrorLog
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	engine *gin.Engine

	expenses *services.ExpenseService
	auth     *auth.Manager
	summary  *services.SummaryJob
	errorLog ports.ErrorLog
	ready    func(ctx context.Context) error
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		expenses:         deps.Expenses,
		auth:             deps.Auth,
		summary:          deps.Summary,
		errorLog:         deps.ErrorLog,
		ready:            deps.Ready,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		started:          time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	s.engine = s.routes(opts.CORSAllowedOrigin)

	var handler http.Handler = s.engine
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

var rpcMethods = []string{http.MethodGet, http.MethodPost}

func (s *Server) routes(origin string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.CustomRecovery(s.recover))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{trace.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", s.handleMetrics)

	api := engine.Group("/api/method")
	api.Match(rpcMethods, "/custom_login", s.handleLogin)

	authed := api.Group("", s.requireSession)
	authed.Match(rpcMethods, "/add_expense", s.rateLimit, s.handleAddExpense)
	authed.Match(rpcMethods, "/get_expenses", s.handleGetExpenses)
	authed.Match(rpcMethods, "/send_daily_expense_summary", s.requireRole(core.SystemManager), s.handleDailySummary)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not_found"})
	})
	return engine
}

func (s *Server) recover(c *gin.Context, err any) {
	ctx := c.Request.Context()
	log.FromContext(ctx).ErrorContext(ctx, "Panic while serving request",
		log.FieldPath, c.Request.URL.Path,
		log.FieldError, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal_error"})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
