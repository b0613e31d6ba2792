package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"sjsage522/opinionworker/config"
	"sjsage522/opinionworker/helpers"
	"sjsage522/opinionworker/internal/api"
	"sjsage522/opinionworker/internal/crawler"
	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/internal/store"
	"sjsage522/opinionworker/internal/translate"
	"sjsage522/opinionworker/logger"
	"sjsage522/opinionworker/services/cache"
	"sjsage522/opinionworker/services/metrics"
	"sjsage522/opinionworker/services/publisher"
	"sjsage522/opinionworker/services/worker"
)

const fetchBlockKey = "opinions:fetch-blocked"

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Strs("product_ids", cfg.ProductIDs).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// With product ids on the command line extract them once and exit
	if args := os.Args[1:]; len(args) > 0 {
		w := worker.NewWorker(ctx, services.Extractor, services.Store, services.Publisher,
			logger.ForComponent("worker"), args, cfg.CrawlInterval, cfg.ExtractionDeadline).
			WithRetry(cfg.FetchRetries, cfg.RetryDelay)
		w.RunOnce()
		return
	}

	workerDone := make(chan error, 1)
	if len(cfg.ProductIDs) > 0 {
		w := worker.NewWorker(ctx, services.Extractor, services.Store, services.Publisher,
			logger.ForComponent("worker"), cfg.ProductIDs, cfg.CrawlInterval, cfg.ExtractionDeadline).
			WithRetry(cfg.FetchRetries, cfg.RetryDelay)
		go func() {
			log.Info().Int("products", len(cfg.ProductIDs)).Msg("Starting opinion worker")
			workerDone <- w.Start()
		}()
	} else {
		logger.Warn("PRODUCT_IDS is empty, products are only extracted through the HTTP API")
	}

	srv := api.New(services.Extractor, services.Store, services.Registry, logger.ForComponent("api").Zerolog())
	httpServer := api.NewHTTPServer(cfg.HTTPAddr, srv.Handler())
	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
		close(serverDone)
	}()

	// Wait for shutdown signal, worker or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	case err := <-serverDone:
		if err != nil {
			logger.LogError("api", err, "HTTP server exited on %s", cfg.HTTPAddr)
		}
	}
	cancel()

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed: %v", err)
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     *store.FileStore
	Extractor *product.Extractor
	Registry  *prometheus.Registry
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "Closing publisher failed")
		}
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{Registry: metrics.NewRegistry()}

	// Initialize cache service
	services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Using Memcache at %s", cfg.MemcacheAddr)

	extractor, err := newExtractor(cfg, services.Cache)
	if err != nil {
		return nil, err
	}
	services.Extractor = extractor

	fileStore, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	services.Store = fileStore
	logger.Info("Storing products under %s", cfg.DataDir)

	// Initialize publisher
	services.Publisher = publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	logger.Info("Publishing to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}

// newTranslator returns the configured translator
func newTranslator(cfg *config.Config) translate.Translator {
	if cfg.TranslateDisabled {
		logger.Debug("Translation disabled, keeping %s text as is", cfg.SourceLang)
		return translate.Identity
	}
	return translate.NewGoogleTranslator(cfg.TranslateURL, cfg.TranslateRPS, helpers.NewClient(cfg.FetchTimeout))
}

// newExtractor wires the fetcher, translator and options into a product extractor
func newExtractor(cfg *config.Config, cacheSvc cache.CacheService) (*product.Extractor, error) {
	fetcher := crawler.NewHTTPFetcher(helpers.NewClient(cfg.FetchTimeout), cacheSvc, fetchBlockKey, cfg.BlockTime)
	return product.NewExtractor(fetcher, newTranslator(cfg), product.OptionsFromConfig(cfg))
}
