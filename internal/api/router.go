package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/orderahead/sync-engine/internal/api/handler"
	"github.com/orderahead/sync-engine/internal/api/middleware"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/infrastructure/http/handlers"

	_ "github.com/orderahead/sync-engine/docs"
)

// Dependencies are the collaborators the HTTP surface is wired to.
type Dependencies struct {
	Logger        zerolog.Logger
	Production    bool
	Authenticator ports.Authenticator
	Orders        ports.OrderService
	Catalog       ports.CatalogService
	Realtime      *handler.RealtimeHandler
	HealthChecks  map[string]handlers.Check
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger, deps.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "orderahead",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/ws"
		},
	}))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Realtime: authenticates the upgrade request itself ---
	e.GET("/v1/ws", deps.Realtime.Connect)

	v1 := e.Group("/v1", middleware.Auth(deps.Authenticator))
	staff := middleware.StaffOnly()

	orders := handler.NewOrderHandler(deps.Orders)
	v1.POST("/orders", orders.Create)
	v1.GET("/orders", orders.List)
	v1.GET("/orders/:id", orders.Get)
	v1.PATCH("/orders/:id/status", orders.UpdateStatus, staff)

	catalog := handler.NewCatalogHandler(deps.Catalog)
	v1.GET("/catalog/items", catalog.ListItems)
	v1.POST("/catalog/items", catalog.CreateItem, staff)
	v1.PUT("/catalog/items/:id", catalog.UpdateItem, staff)
	v1.DELETE("/catalog/items/:id", catalog.DeleteItem, staff)
	v1.GET("/catalog/categories", catalog.ListCategories)
	v1.POST("/catalog/categories", catalog.CreateCategory, staff)
	v1.PUT("/catalog/categories/:id", catalog.UpdateCategory, staff)

	v1.GET("/realtime/stats", deps.Realtime.Stats, staff)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
