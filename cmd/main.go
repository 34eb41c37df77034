package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"eventhub/internal/auth"
	"eventhub/internal/authz"
	"eventhub/internal/handler"
	"eventhub/internal/middleware"
	"eventhub/internal/model"
	"eventhub/internal/store"
	"eventhub/pkg/config"
	"eventhub/pkg/database"
	"eventhub/pkg/jwtutil"
	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting eventhub service...", cfg.LogConfig()...)

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		if err := database.MigrateModels(db); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	tokens, err := jwtutil.NewService(&cfg.JWT)
	if err != nil {
		log.Fatal("Failed to initialize token service", zap.Error(err))
	}

	tenants := store.NewTenantStore(db)
	users := store.NewUserStore(db)
	memberships := store.NewMembershipStore(db)
	events := store.NewEventStore(db)

	authenticator := auth.NewAuthenticator(tokens, users, memberships)
	tenantChain := authz.DefaultChain(map[string]authz.OwnerChecker{"team_id": events})
	superChain := authz.NewChain(authz.SuperAdmin{})

	authHandler := handler.NewAuthHandler(users, memberships, tokens)
	eventHandler := handler.NewEventHandler(events)
	membershipHandler := handler.NewMembershipHandler(memberships)
	superHandler := handler.NewSuperAdminHandler(tenants, events)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Tenant resolution runs before routing so /tenant/{slug} can be stripped
	e.Pre(middleware.RequestIDMiddleware())
	e.Pre(logger.Middleware(log))
	e.Pre(middleware.TenantResolver(middleware.TenantResolverConfig{
		Lookup:      tenants,
		BaseDomain:  cfg.Tenancy.BaseDomain,
		PublicPaths: cfg.Tenancy.PublicPaths,
	}))

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/api/auth/login", authHandler.Login)

	anyRole := []string{model.ScopeTenantAdmin, model.ScopeOrganizer, model.ScopeEvaluator, model.ScopeParticipant, model.ScopeTeamCaptain}
	participants := []string{model.ScopeParticipant, model.ScopeTeamCaptain}
	managers := []string{model.ScopeTenantAdmin, model.ScopeOrganizer}
	allow := func(route middleware.Route) echo.MiddlewareFunc {
		return middleware.Authorize(tenantChain, route)
	}

	// Tenant API - tenant resolved, caller authenticated
	api := e.Group("/api", middleware.Authenticate(authenticator))
	api.GET("/me", authHandler.Me)

	api.GET("/events", eventHandler.ListEvents, allow(middleware.Route{Scopes: anyRole}))
	api.GET("/events/:event_id", eventHandler.GetEvent, allow(middleware.Route{Scopes: anyRole}))
	api.POST("/events", eventHandler.CreateEvent, allow(middleware.Route{Scopes: managers}))

	api.POST("/teams", eventHandler.CreateTeam, allow(middleware.Route{Scopes: participants}))
	api.GET("/teams/:team_id", eventHandler.GetTeam, allow(middleware.Route{Scopes: anyRole}))
	api.PATCH("/teams/:team_id", eventHandler.RenameTeam, allow(middleware.Route{Scopes: managers, OwnerParam: "team_id"}))
	api.GET("/teams/:team_id/submissions", eventHandler.ListSubmissions, allow(middleware.Route{Scopes: anyRole}))
	api.POST("/teams/:team_id/submissions", eventHandler.CreateSubmission, allow(middleware.Route{Scopes: participants, OwnerParam: "team_id"}))

	api.POST("/submissions/:submission_id/evaluations", eventHandler.CreateEvaluation,
		allow(middleware.Route{Scopes: []string{model.ScopeEvaluator}}))

	admin := allow(middleware.Route{Scopes: []string{model.ScopeTenantAdmin}})
	api.PATCH("/memberships/:membership_id/status", membershipHandler.SetStatus, admin)
	api.DELETE("/memberships/:membership_id/roles/:scope", membershipHandler.RevokeRole, admin)

	// Superadmin API - no tenant, cross-tenant reads go through tenancy.Bypass
	super := e.Group("/superadmin",
		middleware.Authenticate(authenticator),
		middleware.Authorize(superChain, middleware.Route{Scopes: []string{model.ScopeSuperAdmin}}))
	super.GET("/tenants", superHandler.ListTenants)
	super.PATCH("/tenants/:tenant_id/status", superHandler.SetTenantStatus)
	super.GET("/tenants/:tenant_id/events", superHandler.ListTenantEvents)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
