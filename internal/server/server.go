package server

import (
	"content-storefront/internal/handler"
	"content-storefront/internal/middleware"
	"content-storefront/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	GrantService    service.GrantService
	CheckoutService service.CheckoutService
	WebhookService  service.WebhookService
	UserService     service.UserService
	Auth            *middleware.Authenticator
	// RedeemLimiter is optional; nil disables redemption throttling.
	RedeemLimiter  middleware.Limiter
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

type Server struct {
	echo            *echo.Echo
	deps            Deps
	accessHandler   *handler.AccessHandler
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	userHandler     *handler.UserHandler
	adminHandler    *handler.AdminLinkHandler
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				deps.Logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			deps.Logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	if deps.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeout(deps.RequestTimeout))
	}

	s := &Server{
		echo:            e,
		deps:            deps,
		accessHandler:   handler.NewAccessHandler(deps.GrantService, deps.UserService, deps.Logger),
		checkoutHandler: handler.NewCheckoutHandler(deps.CheckoutService, deps.Logger),
		webhookHandler:  handler.NewWebhookHandler(deps.WebhookService, deps.Logger),
		userHandler:     handler.NewUserHandler(deps.UserService),
		adminHandler:    handler.NewAdminLinkHandler(deps.GrantService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	optionalAuth := middleware.AuthMiddleware(s.deps.Auth, false)
	requireAuth := middleware.AuthMiddleware(s.deps.Auth, true)

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- access links --------
	consumeMW := []echo.MiddlewareFunc{optionalAuth}
	if s.deps.RedeemLimiter != nil {
		consumeMW = append([]echo.MiddlewareFunc{middleware.RedeemRateLimit(s.deps.RedeemLimiter, s.deps.Logger)}, consumeMW...)
	}
	api.POST("/access/consume", s.accessHandler.Consume, consumeMW...)
	api.POST("/access/evaluate", s.accessHandler.Evaluate, optionalAuth)

	// -------- purchases --------
	api.POST("/checkout", s.checkoutHandler.Checkout, requireAuth)
	api.GET("/purchases", s.userHandler.GetPurchases, requireAuth)

	// -------- provider webhooks --------
	api.POST("/webhooks/mercadopago", s.webhookHandler.MercadoPago)

	// -------- admin --------
	admin := api.Group("/admin", requireAuth, middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/links", s.adminHandler.CreateLink)
	admin.GET("/links", s.adminHandler.ListLinks)
	admin.POST("/links/:id/disable", s.adminHandler.DisableLink)
	admin.GET("/links/:id/visits", s.adminHandler.ListVisits)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
