package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/Festuskumi/TCtrl-backend/internal/di"
	"github.com/Festuskumi/TCtrl-backend/internal/handlers"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/config"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/idempotency"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/observability"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/secrets"
)

const (
	webhookRateLimit  = 120
	webhookRateWindow = time.Minute
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames()...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, di.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	idempotencyStore, err := newIdempotencyStore(ctx, container)
	if err != nil {
		logger.Fatal("failed to initialise idempotency store", zap.Error(err))
	}
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithMethods(http.MethodPost),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	router := buildRouter(logger, cfg, container, idempotencyMiddleware)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("tctrl api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newIdempotencyStore(ctx context.Context, container *di.Container) (idempotency.Store, error) {
	client, err := container.Repositories.Provider().Client(ctx)
	if err != nil {
		return nil, err
	}
	return idempotency.NewFirestoreStore(client), nil
}

func buildRouter(logger *zap.Logger, cfg config.Config, container *di.Container, placementGuard func(http.Handler) http.Handler) http.Handler {
	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	orderHandlers := handlers.NewOrderHandlers(container.Authenticator, container.Services.Orders)
	cartHandlers := handlers.NewCartHandlers(container.Authenticator, container.Services.Cart)
	wishlistHandlers := handlers.NewWishlistHandlers(container.Authenticator, container.Services.Wishlist)
	webhookHandlers := handlers.NewWebhookHandlers(
		container.Services.Reconciliation,
		handlers.WithWebhookRateLimit(webhookRateLimit, webhookRateWindow, nil),
	)
	healthHandlers := handlers.NewHealthHandlers(container.Services.Health)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(func(r chi.Router) {
			r.Use(placementGuard)
			orderHandlers.Routes(r)
		}),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithWishlistRoutes(wishlistHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	}
	adminHandlers := handlers.NewAdminOrderHandlers(container.AdminTokens, container.Authenticator, container.Services.Orders)
	opts = append(opts, handlers.WithAdminRoutes(adminHandlers.Routes))
	if container.AdminTokens == nil {
		logger.Info("admin jwt secret not configured; admin routes gated on the firebase admin role claim")
	}

	return handlers.NewRouter(opts...)
}

// requiredSecretNames marks credentials as mandatory only when their
// environment variable is set, so local runs without card checkout or mail
// still boot.
func requiredSecretNames() []string {
	candidates := []struct {
		env  string
		name string
	}{
		{"TCTRL_STRIPE_API_KEY", "Stripe.APIKey"},
		{"TCTRL_STRIPE_WEBHOOK_SECRET", "Stripe.WebhookSecret"},
		{"TCTRL_PAYPAL_SECRET", "PayPal.Secret"},
		{"TCTRL_SENDGRID_API_KEY", "Mail.SendGridAPIKey"},
		{"TCTRL_ADMIN_JWT_SECRET", "Admin.JWTSecret"},
	}

	required := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(os.Getenv(candidate.env)) != "" {
			required = append(required, candidate.name)
		}
	}
	return required
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	envLabel := strings.ToLower(lookup("TCTRL_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("TCTRL_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("TCTRL_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("TCTRL_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("TCTRL_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}
