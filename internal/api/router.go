package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/settleup/settleup-api/docs"
	"github.com/settleup/settleup-api/internal/api/handler"
	"github.com/settleup/settleup-api/internal/api/middleware"
	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

// Deps groups everything the router needs to build its handlers.
type Deps struct {
	JWTSecret   string
	FrontendURL string
	Logger      zerolog.Logger

	Auth          ports.AuthService
	Clients       ports.ClientService
	Payments      ports.PaymentService
	Notifications ports.NotificationService

	// Optional; the matching endpoints answer 503 when nil.
	Google handler.IdentityProvider
	Stream ports.NotificationStream

	Checks map[string]handler.DependencyCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestContext(d.Logger))
	e.Use(middleware.AccessLog())
	e.Use(echoprometheus.NewMiddleware("settleup"))

	authHandler := handler.NewAuthHandler(d.Auth, d.Google, d.FrontendURL)
	clientHandler := handler.NewClientHandler(d.Clients)
	paymentHandler := handler.NewPaymentHandler(d.Payments)
	notificationHandler := handler.NewNotificationHandler(d.Notifications, d.Stream)

	// --- Public routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/google", authHandler.GoogleBegin)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)
	e.POST("/payments/webhook", paymentHandler.Webhook)

	// --- Authenticated routes ---
	// Attached per group so unknown paths still answer 404.
	authed := []echo.MiddlewareFunc{middleware.Auth(d.JWTSecret), middleware.RBAC(domain.RoleUser, domain.RoleAdmin)}

	e.GET("/auth/me", authHandler.Me, authed...)
	e.PUT("/auth/region", authHandler.UpdateRegion, authed...)

	clients := e.Group("/clients", authed...)
	clients.POST("", clientHandler.Create)
	clients.GET("", clientHandler.List)
	clients.GET("/stats", clientHandler.Stats)
	clients.GET("/search/email", clientHandler.SearchByEmail)
	clients.GET("/:id", clientHandler.Get)
	clients.PUT("/:id", clientHandler.Update)
	clients.DELETE("/:id", clientHandler.Delete)
	clients.POST("/:id/respond", clientHandler.Respond)

	payments := e.Group("/payments", authed...)
	payments.POST("/schedule", paymentHandler.CreateSchedule)
	payments.GET("/client/:id", paymentHandler.ListSchedules)
	payments.PUT("/schedule/:id/:index", paymentHandler.UpdateSchedule)
	payments.POST("/:id/:index/mark-paid", paymentHandler.MarkPaid)
	payments.POST("/create-payment-link", paymentHandler.CreatePaymentLink)

	notifications := e.Group("/notifications", authed...)
	notifications.GET("", notificationHandler.List)
	notifications.GET("/stream", notificationHandler.Stream)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.Delete)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
