package server

import (
	"context"
	"log/slog"
	"net/http"
	"storefront/internal/handler"
	authmw "storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Options struct {
	JWTSecret string
	Currency  string
	Logger    *slog.Logger
}

type Server struct {
	echo           *echo.Echo
	jwtSecret      string
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
	webhookHandler *handler.WebhookHandler
}

func NewServer(
	orderService service.OrderService,
	checkoutService service.CheckoutService,
	reconciler service.ReconcileService,
	webhookService service.WebhookService,
	opts Options,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger(opts.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		jwtSecret:      opts.JWTSecret,
		orderHandler:   handler.NewOrderHandler(orderService, checkoutService, reconciler),
		paymentHandler: handler.NewPaymentHandler(checkoutService, orderService, opts.Currency, opts.Logger),
		webhookHandler: handler.NewWebhookHandler(webhookService, opts.Logger),
	}

	s.setupRoutes()
	return s
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- provider redirects / order page --------
	s.echo.GET("/order/:id", s.paymentHandler.OrderStatus)
	s.echo.GET("/order/:id/stripe-payment-success", s.paymentHandler.StripeSuccess)
	s.echo.GET("/order/:id/paypal-success", s.paymentHandler.PaypalSuccess)

	api := s.echo.Group("/api")

	// -------- webhooks --------
	webhooks := api.Group("/webhooks")
	webhooks.POST("/stripe", s.webhookHandler.Stripe)
	webhooks.POST("/paypal", s.webhookHandler.Paypal)
	webhooks.POST("/braintree", s.webhookHandler.Braintree)

	// -------- orders --------
	orders := api.Group("/orders", authmw.AuthMiddleware(s.jwtSecret))
	orders.POST("", s.orderHandler.PlaceOrder)
	orders.GET("/:id", s.orderHandler.GetOrder)
	orders.POST("/:id/stripe", s.orderHandler.StartStripe)
	orders.POST("/:id/paypal", s.orderHandler.StartPaypal)
	orders.POST("/:id/braintree", s.orderHandler.PayBraintree)

	// -------- admin --------
	admin := api.Group("/admin", authmw.AuthMiddleware(s.jwtSecret), authmw.RequireAdmin())
	admin.PUT("/orders/:id/cod-paid", s.orderHandler.MarkCashCollected)
	admin.POST("/orders/:id/reconcile", s.orderHandler.Reconcile)
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
