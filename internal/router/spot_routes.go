package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/handler"
	"github.com/iliyamo/parking-rental/internal/middleware"
	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/stream"
)

// RegisterPublic registers the read-only spot endpoints.  cache wraps
// them; pass a no-op middleware to disable caching.
func RegisterPublic(e *echo.Echo, s *handler.SpotHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/spots", cache)
	g.GET("", s.ListSpots)
	g.GET("/:id", s.GetSpot)
}

// RegisterSpots registers the state-changing spot endpoints and the
// owner's ledger.  Spot writes accept any signed-in user: the registry
// itself decides who may add or release.  The ledger needs the OWNER role.
func RegisterSpots(e *echo.Echo, s *handler.SpotHandler, l *handler.LedgerHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)

	g := e.Group("/v1/spots", auth, limit)
	g.POST("", s.AddSpot)
	g.POST("/:id/reserve", s.Reserve)
	g.POST("/:id/release", s.Release)

	lg := e.Group("/v1/ledger", auth, middleware.RequireRole(model.RoleOwner), limit)
	lg.GET("", l.Ledger)
	lg.POST("/withdraw", l.Withdraw)
}

// RegisterEvents exposes the websocket event stream.
func RegisterEvents(e *echo.Echo, hub *stream.Hub) {
	e.GET("/v1/events/ws", hub.ServeWS)
}
