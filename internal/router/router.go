package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/handler"
	"github.com/dmoreira/shoplist/internal/middleware"
)

// Handlers bundles every handler the API exposes so registration stays
// in one place.
type Handlers struct {
	Auth       *handler.AuthHandler
	Lists      *handler.ListHandler
	Items      *handler.ItemHandler
	Categories *handler.CategoryHandler
	Marking    *handler.MarkingHandler
	Purchases  *handler.PurchaseHandler
}

// Register wires all routes onto the Echo instance. markLimiter rate
// limits the polling-heavy mark endpoints; purchaseCache serves the
// immutable purchase history from Redis. Either may be a pass-through
// middleware when its backend is disabled.
func Register(e *echo.Echo, h Handlers, jwtSecret string, markLimiter, purchaseCache echo.MiddlewareFunc) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Unauthenticated session management.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	// Logout with a refresh token in the body does not need a JWT.
	auth.POST("/logout", h.Auth.Logout)

	// Everything below requires a valid access token.
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.GET("/me", h.Auth.Me)
	g.POST("/logout", h.Auth.Logout) // bare bearer: revoke all sessions

	// ---- Lists ----
	g.GET("/lists", h.Lists.Index)
	g.POST("/lists", h.Lists.Create)
	g.GET("/lists/:id", h.Lists.Show)
	g.PUT("/lists/:id", h.Lists.Update)
	g.DELETE("/lists/:id", h.Lists.Delete)

	// ---- Sharing (owner only, enforced in the handler) ----
	g.GET("/lists/:id/shares", h.Lists.Shares)
	g.POST("/lists/:id/shares", h.Lists.AddShare)
	g.DELETE("/lists/:id/shares/:userId", h.Lists.RemoveShare)

	// ---- Items ----
	g.POST("/lists/:id/items", h.Items.Create)
	g.PUT("/items/:id", h.Items.Update)
	g.DELETE("/items/:id", h.Items.Delete)

	// ---- Categories ----
	g.GET("/categories", h.Categories.Index)
	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("admin"))
	admin.POST("/categories", h.Categories.Create)
	admin.PUT("/categories/:id", h.Categories.Update)
	admin.DELETE("/categories/:id", h.Categories.Delete)

	// ---- Shopping session ----
	// Clients poll marks while several people shop, so these two get
	// the token bucket.
	g.GET("/lists/:id/marks", h.Marking.GetMarks, markLimiter)
	g.POST("/lists/:id/marks/toggle", h.Marking.ToggleMark, markLimiter)
	g.POST("/lists/:id/finalize", h.Marking.Finalize)

	// ---- Purchase history ----
	g.GET("/purchases", h.Purchases.History, purchaseCache)
	g.GET("/purchases/:id", h.Purchases.Detail, purchaseCache)
}
