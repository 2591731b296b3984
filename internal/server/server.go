package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/E10-Naganiom/backOFraud/internal/config"
	"github.com/E10-Naganiom/backOFraud/internal/handler"
	"github.com/E10-Naganiom/backOFraud/internal/metrics"
	"github.com/E10-Naganiom/backOFraud/internal/middleware"
	"github.com/E10-Naganiom/backOFraud/internal/repository"
	"github.com/E10-Naganiom/backOFraud/internal/service"
	"github.com/E10-Naganiom/backOFraud/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Repositories is the persistence layer the server builds its services on.
type Repositories struct {
	Users      repository.UserRepository
	Incidents  repository.IncidentRepository
	Evidence   repository.EvidenceRepository
	Categories repository.CategoryRepository
}

// Dependencies are the collaborators created in main. Limiter, Notifier,
// Metrics and Health may be nil.
type Dependencies struct {
	Repos    Repositories
	Store    storage.FileStore
	Tokens   *service.TokenService
	Notifier service.Notifier
	Limiter  *middleware.LoginLimiter
	Metrics  *metrics.Metrics
	Health   *HealthChecker
}

type Server struct {
	router     *gin.Engine
	routes     *middleware.RouteTable
	cfg        *config.Config
	deps       Dependencies
	logger     *zap.Logger
	httpServer *http.Server
}

func NewServer(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	// Without trusted proxies ClientIP is the socket peer, so a client
	// cannot pick its own rate limit key through X-Forwarded-For.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Error("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	s := &Server{
		router: router,
		routes: middleware.NewRouteTable(),
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	repos := s.deps.Repos
	log := s.logger

	// The guard sees every request, including unmatched ones, so it is
	// installed before any route.
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Middleware())
	}
	s.router.Use(middleware.RequestLogger(log))
	guard := middleware.NewGuard(s.routes, s.deps.Tokens, repos.Users, failureRecorder(s.deps.Metrics), log)
	s.router.Use(guard.Handler())

	policy := service.EvidencePolicy{
		MaxPerIncident: s.cfg.Evidence.MaxPerIncident,
		MaxFileBytes:   s.cfg.Storage.MaxUploadBytes,
	}

	authService := service.NewAuthService(repos.Users, s.deps.Tokens, log)
	userService := service.NewUserService(repos.Users, log)
	userAdminService := service.NewUserAdminService(repos.Users, log)
	categoryService := service.NewCategoryService(repos.Categories, log)
	incidentService := service.NewIncidentService(repos.Incidents, repos.Evidence, repos.Categories, repos.Users,
		s.deps.Store, s.deps.Notifier, policy, log)
	incidentAdminService := service.NewIncidentAdminService(repos.Incidents, repos.Evidence, repos.Users, s.deps.Notifier, log)
	evidenceService := service.NewEvidenceService(repos.Incidents, repos.Evidence, s.deps.Store, log)

	authHandler := handler.NewAuthHandler(authService, loginRecorder(s.deps.Metrics), log)
	userHandler := handler.NewUserHandler(userService, log)
	categoryHandler := handler.NewCategoryHandler(categoryService, log)
	incidentHandler := handler.NewIncidentHandler(incidentService, maxBodyBytes(policy), log)
	evidenceHandler := handler.NewEvidenceHandler(evidenceService, log)
	adminHandler := handler.NewAdminHandler(userAdminService, incidentAdminService, categoryService, log)

	r := middleware.NewRouter(&s.router.RouterGroup, s.routes)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	}, middleware.Public)
	if s.deps.Health != nil {
		r.GET("/health", s.deps.Health.Readiness, middleware.Public)
	}
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()), middleware.Public)
	}

	authGroup := r.Group("/auth")
	login := authGroup.Group("/login", middleware.Public)
	login.Use(s.deps.Limiter.Handler())
	login.POST("", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh, middleware.Public)
	authGroup.GET("/profile", authHandler.Profile)

	users := r.Group("/users")
	users.POST("", userHandler.Register, middleware.Public)
	users.PUT("/:id", userHandler.UpdateUser)
	users.PATCH("/:id/inactivate", userHandler.Inactivate)

	categories := r.Group("/categories")
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	r.GET("/risk-levels/:id/categories", categoryHandler.ListByRiskLevel)

	incidents := r.Group("/incidents")
	incidents.POST("", incidentHandler.CreateIncident)
	incidents.GET("", incidentHandler.ListIncidents)
	incidents.GET("/:id", incidentHandler.GetIncident)
	incidents.PUT("/:id", incidentHandler.UpdateIncident)
	incidents.PATCH("/:id/delete", incidentHandler.DeleteIncident)
	incidents.GET("/:id/evidence", evidenceHandler.ListEvidence)
	incidents.GET("/:id/evidence/:evidenceId/file", evidenceHandler.DownloadEvidence)
	incidents.DELETE("/:id/evidence/:evidenceId", evidenceHandler.DeleteEvidence)

	admin := r.Group("/admin", middleware.Admin)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.GET("/incidents", adminHandler.ListIncidents)
	admin.GET("/incidents/:id", adminHandler.GetIncident)
	admin.PATCH("/incidents/:id/evaluate", adminHandler.EvaluateIncident)
	admin.POST("/categories", adminHandler.CreateCategory)
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// at most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.cfg.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func maxBodyBytes(policy service.EvidencePolicy) int64 {
	if policy.MaxFileBytes <= 0 {
		return 0
	}
	// Room for every file plus the text fields.
	return policy.MaxFileBytes*int64(policy.MaxPerIncident) + 1<<20
}

// The metrics recorders are nil-safe, but a nil *Metrics stored in an
// interface is not a nil interface; keep them nil explicitly.
func failureRecorder(m *metrics.Metrics) middleware.FailureRecorder {
	if m == nil {
		return nil
	}
	return m
}

func loginRecorder(m *metrics.Metrics) handler.LoginRecorder {
	if m == nil {
		return nil
	}
	return m
}
