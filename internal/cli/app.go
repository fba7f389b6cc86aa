package cli

import (
	"fmt"
	"log/slog"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"

	"gorm.io/gorm"
)

// app is the wired object graph shared by serve and reconcile.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB

	reconciler service.ReconcileService
	orders     service.OrderService
	checkout   service.CheckoutService
	webhooks   service.WebhookService
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	// Providers without credentials stay disabled.
	var (
		stripeClient    client.StripeClient
		paypalClient    client.PaypalClient
		braintreeClient client.BraintreeClient
	)
	verifiers := map[model.PaymentMethod]payment.Verifier{}
	if cfg.Stripe.SecretKey != "" {
		stripeClient = client.NewStripeClient(&cfg.Stripe)
		verifiers[model.PaymentMethodStripe] = payment.WithTimeout(stripeClient, cfg.ProviderTimeout)
	}
	if cfg.Paypal.ClientID != "" {
		paypalClient = client.NewPaypalClient(&cfg.Paypal, cfg.ProviderTimeout)
		verifiers[model.PaymentMethodPayPal] = payment.WithTimeout(paypalClient, cfg.ProviderTimeout)
	}
	if cfg.BrainTree.MerchantID != "" {
		braintreeClient = client.NewBraintreeClient(&cfg.BrainTree)
		verifiers[model.PaymentMethodBraintree] = payment.WithTimeout(braintreeClient, cfg.ProviderTimeout)
	}
	for method := range verifiers {
		logger.Info("payment provider enabled", "provider", method)
	}

	reconciler := service.NewReconcileService(
		orderRepo,
		verifiers,
		service.NewInventoryAdjuster(productRepo, cartRepo),
		cfg.Currency,
		service.WithLogger(logger),
	)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		reconciler: reconciler,
		orders:     service.NewOrderService(db, orderRepo, productRepo, cartRepo),
	}

	// Interface values are only assigned when the client exists, so a
	// disabled provider reaches the services as a nil interface.
	var (
		stripeIntents   service.StripeIntentCreator
		stripeEvents    service.StripeEventVerifier
		paypalOrders    service.PaypalOrders
		paypalSignature service.PaypalSignatureVerifier
		braintreeSale   service.BraintreeSeller
		braintreeHooks  service.BraintreeWebhookParser
	)
	if stripeClient != nil {
		stripeIntents, stripeEvents = stripeClient, stripeClient
	}
	if paypalClient != nil {
		paypalOrders, paypalSignature = paypalClient, paypalClient
	}
	if braintreeClient != nil {
		braintreeSale, braintreeHooks = braintreeClient, braintreeClient
	}

	a.checkout = service.NewCheckoutService(orderRepo, reconciler,
		stripeIntents, paypalOrders, braintreeSale,
		cfg.BaseURL, cfg.Currency, logger)
	a.webhooks = service.NewWebhookService(reconciler, webhookEventRepo,
		stripeEvents, paypalSignature, braintreeHooks, logger)

	return a, nil
}

func (a *app) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
