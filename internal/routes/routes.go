package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"loanportal/internal/handlers"
	"loanportal/internal/metrics"
	"loanportal/internal/middleware"
	"loanportal/internal/models"
	"loanportal/internal/sessions"
)

// Handlers groups everything SetupRoutes mounts. Entities holds one
// handler per kind; a nil Health or Metrics skips that endpoint.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Entities  map[models.Kind]*handlers.EntityHandler
	Statement *handlers.StatementHandler
	Related   *handlers.RelatedHandler
	API       *handlers.APIHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler
}

func SetupRoutes(
	r *gin.Engine,
	h Handlers,
	store sessions.Store,
	admin middleware.AdminChecker,
	m *metrics.Metrics,
	logger *slog.Logger,
) *gin.Engine {
	r.Use(middleware.RequestLogger(logger))
	r.Use(m.Middleware())

	// ---- no session
	if h.Health != nil {
		r.GET("/healthz", h.Health.Check)
	}
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.NoRoute(handlers.NotFound)

	// ---- public pages
	web := r.Group("/")
	web.Use(middleware.Sessions(store, logger), middleware.CSRF())
	web.GET("/", handlers.Home)
	web.GET("/login", h.Auth.LoginPage)
	web.POST("/login", h.Auth.Login)
	web.GET("/mfa-verify", h.Auth.MFAVerifyPage)
	web.POST("/mfa-verify", h.Auth.MFAVerify)
	web.GET("/logout", h.Auth.Logout)

	// ---- signed in; MFA enrolment stays open to read-only roles
	authed := web.Group("/")
	authed.Use(middleware.RequireAuth())
	authed.GET("/mfa-setup", h.Auth.MFASetupPage)
	authed.POST("/mfa-setup/verify", h.Auth.MFASetupVerify)
	authed.GET("/mfa-backup-codes/done", h.Auth.BackupCodesDone)
	authed.GET("/profile", h.Auth.Profile)

	app := authed.Group("/")
	app.Use(middleware.ReadOnlyGuard())
	app.GET("/dashboard", h.Dashboard.Index)

	for _, kind := range models.Kinds {
		eh := h.Entities[kind]
		if eh == nil {
			continue
		}
		g := app.Group("/" + kind.Collection())
		{
			g.GET("", eh.Index)
			g.GET("/new", eh.New)
			g.POST("", eh.Create)
			g.GET("/:id", eh.Show)
			g.GET("/:id/edit", eh.Edit)
			g.POST("/:id", eh.Update)
			if kind.Deletable() {
				g.POST("/:id/delete", eh.Delete)
			}
		}
	}
	if h.Statement != nil {
		app.GET("/loans/:id/statement.pdf", h.Statement.Loan)
	}

	// ---- JSON for scripts on the pages
	app.GET("/related/:kind/:id/:target", h.Related.Resolve)
	app.Any("/api/*path", h.API.Proxy)

	// ---- admin
	adm := app.Group("/admin")
	adm.Use(middleware.RequireAdmin(admin))
	{
		adm.GET("", h.Admin.Index)
		adm.GET("/logs", h.Admin.Logs)
		adm.POST("/users/:id/:action", h.Admin.UserAction)
	}

	return r
}
