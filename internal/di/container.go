package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/Festuskumi/TCtrl-backend/internal/notifications"
	"github.com/Festuskumi/TCtrl-backend/internal/payments"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/config"
	pfirestore "github.com/Festuskumi/TCtrl-backend/internal/platform/firestore"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/jobs"
	firestoreRepo "github.com/Festuskumi/TCtrl-backend/internal/repositories/firestore"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// Services bundles the application services exposed by the container.
type Services struct {
	Orders         services.OrderService
	Reconciliation services.ReconciliationService
	Cart           services.CartService
	Wishlist       services.WishlistService
	Health         services.HealthService
}

// Container owns every long-lived dependency of the API process and knows how
// to release them on shutdown.
type Container struct {
	Config        config.Config
	Repositories  *firestoreRepo.Registry
	Payments      *payments.Manager
	Authenticator *auth.Authenticator
	AdminTokens   *auth.AdminTokenManager
	Services      Services

	logger      *zap.Logger
	pubsub      *pubsub.Client
	eventsTopic *pubsub.Topic
}

// Option customises container construction, mainly for tests.
type Option func(*containerOptions)

type containerOptions struct {
	logger   *zap.Logger
	registry *firestoreRepo.Registry
	events   services.OrderEventPublisher
	mailer   services.Mailer
	manager  *payments.Manager
}

// WithLogger supplies the process logger used for component log hooks.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithRegistry injects a pre-built repository registry instead of dialling Firestore.
func WithRegistry(registry *firestoreRepo.Registry) Option {
	return func(o *containerOptions) {
		o.registry = registry
	}
}

// WithEventPublisher overrides the Pub/Sub order event publisher.
func WithEventPublisher(events services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.events = events
	}
}

// WithMailer overrides the SendGrid confirmation mailer.
func WithMailer(mailer services.Mailer) Option {
	return func(o *containerOptions) {
		o.mailer = mailer
	}
}

// WithPaymentManager overrides the provider manager built from configuration.
func WithPaymentManager(manager *payments.Manager) Option {
	return func(o *containerOptions) {
		o.manager = manager
	}
}

// NewContainer assembles repositories, payment providers, and services from
// the loaded configuration.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config: cfg,
		logger: logger,
	}

	registry := options.registry
	if registry == nil {
		provider := pfirestore.NewProvider(cfg.Firestore)
		built, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			return nil, fmt.Errorf("build repository registry: %w", err)
		}
		registry = built
	}
	c.Repositories = registry

	manager := options.manager
	if manager == nil {
		built, err := buildPaymentManager(cfg, logger)
		if err != nil {
			return nil, err
		}
		manager = built
	}
	c.Payments = manager

	mailer := options.mailer
	if mailer == nil && strings.TrimSpace(cfg.Mail.SendGridAPIKey) != "" {
		built, err := notifications.NewSendGridMailer(notifications.SendGridMailerConfig{
			APIKey:      cfg.Mail.SendGridAPIKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("build mailer: %w", err)
		}
		mailer = built
	}

	events := options.events
	if events == nil && strings.TrimSpace(cfg.Events.ProjectID) != "" {
		client, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("build pubsub client: %w", err)
		}
		c.pubsub = client
		c.eventsTopic = client.Topic(cfg.Events.Topic)
		publisher, err := jobs.NewPubSubOrderEventPublisher(c.eventsTopic)
		if err != nil {
			return nil, fmt.Errorf("build order event publisher: %w", err)
		}
		events = publisher
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("build firebase verifier: %w", err)
	}
	c.Authenticator = auth.NewAuthenticator(verifier,
		auth.WithUserGetter(verifier),
		auth.WithRoleClaim(cfg.Security.RoleClaim),
		auth.WithVerificationTimeout(cfg.Security.AuthVerifyTimeout),
	)

	if strings.TrimSpace(cfg.Admin.JWTSecret) != "" {
		tokens, err := auth.NewAdminTokenManager(cfg.Admin.JWTSecret, auth.WithAdminTokenTTL(cfg.Admin.TokenTTL))
		if err != nil {
			return nil, fmt.Errorf("build admin token manager: %w", err)
		}
		c.AdminTokens = tokens
	}

	if err := c.buildServices(mailer, events); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) buildServices(mailer services.Mailer, events services.OrderEventPublisher) error {
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     c.Repositories.Orders(),
		Users:      c.Repositories.Users(),
		Payments:   c.Payments,
		UnitOfWork: c.Repositories,
		Clock:      time.Now,
		Events:     events,
		Mailer:     mailer,
		Logger:     zapLogHook(c.logger.Named("orders")),
	})
	if err != nil {
		return fmt.Errorf("build order service: %w", err)
	}

	reconciliation, err := services.NewReconciliationService(services.ReconciliationServiceDeps{
		Orders:   c.Repositories.Orders(),
		Users:    c.Repositories.Users(),
		Payments: c.Payments,
		Events:   events,
		Mailer:   mailer,
		Clock:    time.Now,
		Logger:   zapLogHook(c.logger.Named("reconcile")),
	})
	if err != nil {
		return fmt.Errorf("build reconciliation service: %w", err)
	}

	cart, err := services.NewCartService(services.CartServiceDeps{
		Users:  c.Repositories.Users(),
		Logger: zapLogHook(c.logger.Named("cart")),
	})
	if err != nil {
		return fmt.Errorf("build cart service: %w", err)
	}

	wishlist, err := services.NewWishlistService(services.WishlistServiceDeps{
		Users:  c.Repositories.Users(),
		Logger: zapLogHook(c.logger.Named("wishlist")),
	})
	if err != nil {
		return fmt.Errorf("build wishlist service: %w", err)
	}

	health, err := services.NewHealthService(services.HealthServiceDeps{
		Health: c.Repositories.Health(),
		Clock:  time.Now,
	})
	if err != nil {
		return fmt.Errorf("build health service: %w", err)
	}

	c.Services = Services{
		Orders:         orders,
		Reconciliation: reconciliation,
		Cart:           cart,
		Wishlist:       wishlist,
		Health:         health,
	}
	return nil
}

// Close releases Pub/Sub and Firestore resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.eventsTopic != nil {
		c.eventsTopic.Stop()
	}
	if c.pubsub != nil {
		if err := c.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildPaymentManager(cfg config.Config, logger *zap.Logger) (*payments.Manager, error) {
	hook := zapLogHook(logger.Named("payments"))

	providers := []payments.Provider{payments.NewCashProvider(hook)}

	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        hook,
			Clock:         time.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("build stripe provider: %w", err)
		}
		providers = append(providers, stripeProvider)
	}

	if strings.TrimSpace(cfg.PayPal.ClientID) != "" {
		paypalProvider, err := payments.NewPayPalProvider(payments.PayPalProviderConfig{
			ClientID: cfg.PayPal.ClientID,
			Secret:   cfg.PayPal.Secret,
			BaseURL:  cfg.PayPal.BaseURL,
			Logger:   hook,
			Clock:    time.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("build paypal provider: %w", err)
		}
		providers = append(providers, paypalProvider)
	}

	manager, err := payments.NewManager(providers...)
	if err != nil {
		return nil, fmt.Errorf("build payment manager: %w", err)
	}
	return manager, nil
}

func zapLogHook(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("component log", zFields...)
	}
}
