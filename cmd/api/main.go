package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/handler"
	"shopfront/internal/media"
	"shopfront/internal/notify"
	"shopfront/internal/offer"
	"shopfront/internal/payment"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopfront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	health := map[string]handler.Pinger{"postgres": pool}

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	deviceRepo := repository.NewDeviceRepository(pool, logger)
	offerRepo := repository.NewOfferRepository(pool, logger)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable at start-up, active offer cache will fall through to postgres")
		}
		offerRepo = repository.NewCachedOfferRepository(offerRepo, rdb, cfg.Redis.OfferTTL, logger)
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Info().Msg("redis disabled, active offers served from postgres")
	}

	var store media.Store
	if cfg.Media.Enabled() {
		store, err = media.NewCloudinaryStore(cfg.Media.CloudinaryURL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize media store: %w", err)
		}
	} else {
		logger.Info().Msg("media store not configured, banner uploads disabled")
	}

	// Push notifications run in the background and are drained on shutdown
	expo := notify.NewExpoClient(cfg.Notify.GatewayURL, cfg.Notify.AccessToken, cfg.Notify.BatchSize, cfg.Notify.Timeout, logger)
	notifier := notify.NewBackground(expo, cfg.Notify.Timeout, logger)

	pricing := service.NewPricing(cfg.Checkout)
	engine := offer.NewEngine(offerRepo, nil, logger)

	// Services
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	offerService := service.NewOfferService(offerRepo, deviceRepo, store, cfg.Media.Folder, notifier, nil, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	checkoutService := service.NewCheckoutService(cartRepo, engine, pricing, logger)
	deviceService := service.NewDeviceService(deviceRepo, logger)
	reconciliationService := service.NewReconciliationService(
		orderRepo, cartRepo, paymentRepo, offerRepo, deviceRepo,
		notifier, pricing, cfg.Payment.Provider, nil, logger,
	)

	if len(cfg.Import.Files) > 0 {
		if err := importOffers(ctx, cfg, offerService, logger); err != nil {
			return err
		}
	}

	verifier := payment.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance)

	mux := router.New(router.Handlers{
		Health:     handler.NewHealthHandler(health, 2*time.Second, logger),
		Product:    handler.NewProductHandler(productService, logger),
		Offer:      handler.NewOfferHandler(engine, logger),
		AdminOffer: handler.NewAdminOfferHandler(offerService, logger),
		Cart:       handler.NewCartHandler(cartService, logger),
		Checkout:   handler.NewCheckoutHandler(checkoutService, logger),
		Order:      handler.NewOrderHandler(orderService, logger),
		Device:     handler.NewDeviceHandler(deviceService, logger),
		Webhook:    handler.NewWebhookHandler(verifier, reconciliationService, cfg.Payment.MaxBodyBytes, logger),
	}, router.Options{
		APIKey:         cfg.Auth.APIKey,
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTIssuer:      cfg.Auth.JWTIssuer,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		if err := notifier.Wait(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("pending notifications abandoned")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// importOffers applies the configured offer definition files. The bucket is
// consulted first when S3 is enabled, then the local file system.
func importOffers(ctx context.Context, cfg *config.Config, creator offer.Creator, logger zerolog.Logger) error {
	var sources []offer.Source
	if cfg.S3.Enabled {
		s3Loader, err := offer.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("S3 unavailable, reading offer files from disk only")
		} else {
			sources = append(sources, offer.Source{Name: "s3", Loader: s3Loader, Key: offer.PrefixKey(cfg.S3.Prefix)})
		}
	}
	sources = append(sources, offer.Source{Name: "file", Loader: offer.NewFileLoader(logger)})

	loader := offer.NewChainLoader(logger, sources...)

	summary, err := offer.NewImporter(loader, creator, logger).Import(ctx, cfg.Import.Files)
	if err != nil {
		return fmt.Errorf("failed to import offers: %w", err)
	}

	logger.Info().
		Int("created", summary.Created).
		Int("existing", summary.Existing).
		Int("rejected", summary.Rejected).
		Msg("offer import finished")

	return nil
}
