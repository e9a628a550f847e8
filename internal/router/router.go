package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/watchparty-tickets/internal/config"
	"github.com/iliyamo/watchparty-tickets/internal/handler"
	"github.com/iliyamo/watchparty-tickets/internal/middleware"
	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// Deps carries everything the routes need.  Redis is optional; without
// it responses are not cached and requests are not rate limited.
type Deps struct {
	Cfg     config.Config
	Cache   config.CacheConfig
	Log     *zap.Logger
	Redis   *redis.Client
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Events  *handler.EventHandler
	Tickets *handler.TicketHandler
}

// New returns an Echo instance with the common middleware and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterAdmin(e, d)
	return e
}

// RegisterRoutes registers the probes and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	if h == nil {
		h = &handler.HealthHandler{}
	}
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers staff login and the identity endpoint.  Login
// attempts are rate limited per client ip.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig("LOGIN_"), d.Redis)
	e.POST("/v1/auth/login", d.Auth.Login, limit)

	e.GET("/v1/me", d.Auth.Me,
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)
}

// RegisterPublic registers the guest endpoints.  Event reads are cached
// briefly in Redis; reservations are rate limited.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig("RESERVE_"), d.Redis)

	g := e.Group("/v1")
	g.GET("/events", d.Events.List, cache)
	g.GET("/events/:id", d.Events.Get, cache)
	g.GET("/search/events", d.Events.Search, cache)
	g.POST("/events/:id/tickets", d.Tickets.Reserve, limit)
	g.GET("/tickets", d.Tickets.ByEmail)
	g.GET("/tickets/:id", d.Tickets.Get)
}

// RegisterAdmin registers the staff endpoints.  Every successful write
// purges the response cache so that public reads see the change.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
		middleware.PurgeOnWrite(d.Cache, d.Redis),
	)
	g.GET("/dashboard", d.Events.Dashboard)

	g.POST("/events", d.Events.Create)
	g.PATCH("/events/:id", d.Events.Patch)
	g.PUT("/events/:id", d.Events.Replace)
	g.DELETE("/events/:id", d.Events.Delete)
	g.GET("/events/:id/tickets", d.Tickets.ForEvent)
	g.GET("/events/:id/check-in", d.Tickets.CheckInList)

	g.GET("/tickets", d.Tickets.List)
	g.PATCH("/tickets/:code/status", d.Tickets.SetStatus)
	g.POST("/tickets/:code/check-in", d.Tickets.CheckIn)
}
