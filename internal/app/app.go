package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "loanportal/docs"
	"loanportal/internal/backend"
	"loanportal/internal/config"
	"loanportal/internal/handlers"
	"loanportal/internal/metrics"
	"loanportal/internal/models"
	"loanportal/internal/pdf"
	"loanportal/internal/repositories"
	"loanportal/internal/resolver"
	"loanportal/internal/routes"
	"loanportal/internal/services"
	"loanportal/internal/sessions"
	"loanportal/internal/views"
)

const janitorInterval = 15 * time.Minute

// App is the assembled web front end.
type App struct {
	Config  *config.Config
	Engine  *gin.Engine
	Backend *backend.Client

	log     *slog.Logger
	db      *sql.DB
	janitor *sessions.PostgresStore
}

// New wires every component from cfg. A nil reg keeps the collectors in
// a private registry.
func New(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UsesDevSecret() {
		logger.Warn("session.secret_key is the development default; set SECRET_KEY before deploying")
	}
	m := metrics.New(reg)
	a := &App{Config: cfg, log: logger}

	// === Sessions ===
	var store sessions.Store
	switch cfg.Session.Store {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		repo := repositories.NewSessionRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("session schema: %w", err)
		}
		ps, err := sessions.NewPostgresStore(cfg.Session, repo, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		store, a.janitor = ps, ps
	default:
		cs, err := sessions.NewCookieStore(cfg.Session)
		if err != nil {
			return nil, err
		}
		store = cs
	}

	// === Backend and resolver ===
	a.Backend = backend.NewClient(cfg.Backend, logger, m)
	res := resolver.New(a.Backend, resolver.ConfigFrom(cfg.Backend, cfg.Resolver), logger, m)

	// === Services ===
	entityService := services.NewEntityService(a.Backend, logger)
	detailService := services.NewDetailService(a.Backend, res, logger)
	authService := services.NewAuthService(a.Backend, logger)
	adminService := services.NewAdminService(a.Backend, logger)

	// === Handlers ===
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Dashboard: handlers.NewDashboardHandler(entityService),
		Entities:  map[models.Kind]*handlers.EntityHandler{},
		Statement: handlers.NewStatementHandler(detailService, pdf.NewStatementGenerator(cfg.PDF.FontPath)),
		Related:   handlers.NewRelatedHandler(detailService),
		API:       handlers.NewAPIHandler(a.Backend),
		Admin:     handlers.NewAdminHandler(adminService),
		Health:    handlers.NewHealthHandler(nil),
	}
	if a.db != nil {
		h.Health = handlers.NewHealthHandler(a.db)
	}
	for _, kind := range models.Kinds {
		h.Entities[kind] = handlers.NewEntityHandler(kind, entityService, detailService)
	}

	// === Gin ===
	renderer, err := views.New()
	if err != nil {
		a.Close()
		return nil, err
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.HTMLRender = renderer
	if err := router.SetTrustedProxies(nil); err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = routes.SetupRoutes(router, h, store, authService, m, logger)
	return a, nil
}

// NewRegistry returns a registry with the Go runtime and process
// collectors, as the /metrics endpoint serves.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Engine,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if a.janitor != nil {
		jctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.janitor.RunJanitor(jctx, janitorInterval)
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("server started", "addr", srv.Addr, "backend", a.Config.Backend.BaseURL, "session_store", a.Config.Session.Store)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the database handle, if any.
func (a *App) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("database close failed", "err", err)
	}
}
