package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadkart/threadkart-backend-go/handlers"
	customMiddleware "github.com/threadkart/threadkart-backend-go/middleware"
)

// SetupRoutes wires the HTTP surface over the fulfillment core.
func SetupRoutes(e *echo.Echo, orderHandler *handlers.OrderHandler, paymentHandler *handlers.PaymentHandler) {
	// Public routes
	e.POST("/api/auth/register", handlers.Register)
	e.POST("/api/auth/login", handlers.Login)

	// Product availability (re-queried by clients after a 409)
	e.GET("/api/products", handlers.GetProducts)
	e.GET("/api/products/:id", handlers.GetProduct)

	// Orders
	ordersGroup := e.Group("/api/orders")
	ordersGroup.POST("", orderHandler.CreateOrder, customMiddleware.AuthOptional)
	ordersGroup.GET("", orderHandler.List, customMiddleware.AuthOptional)
	ordersGroup.GET("/mine", orderHandler.ListMine, customMiddleware.RequireAuth)
	ordersGroup.GET("/returns", orderHandler.ListReturns, customMiddleware.RequireAuth, customMiddleware.RequireAdmin)
	ordersGroup.GET("/mine-returns", orderHandler.ListMyReturns, customMiddleware.RequireAuth)
	ordersGroup.POST("/request-return", orderHandler.RequestReturnByBody, customMiddleware.RequireAuth)
	ordersGroup.GET("/:id", orderHandler.Get, customMiddleware.AuthOptional)
	ordersGroup.PUT("/:id/status", orderHandler.UpdateStatus, customMiddleware.RequireAuth, customMiddleware.RequireAdmin)
	ordersGroup.PUT("/:id", orderHandler.UpdateStatus, customMiddleware.RequireAuth, customMiddleware.RequireAdmin)
	ordersGroup.PUT("/:id/admin-update", orderHandler.AdminUpdate, customMiddleware.RequireAuth, customMiddleware.RequireAdmin)
	ordersGroup.POST("/:id/cancel", orderHandler.Cancel, customMiddleware.RequireAuth)
	ordersGroup.POST("/:id/request-return", orderHandler.RequestReturn, customMiddleware.RequireAuth)

	// Payments
	paymentGroup := e.Group("/api/payment")
	paymentGroup.POST("/create-order", paymentHandler.CreateGatewayOrder, customMiddleware.AuthOptional)
	paymentGroup.POST("/verify", paymentHandler.Verify, customMiddleware.RequireAuth)
	paymentGroup.POST("/manual", paymentHandler.Manual, customMiddleware.RequireAuth)

	// Ops
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
