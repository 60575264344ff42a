package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/adapter/repo"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/http/handlers"
	httpapi "github.com/lulatiAI/ai-imagetovideogen-backend/internal/http/httpapi"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/pipeline"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/providers/moderation"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/providers/runway"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("imagetovideo", reg)

	apiClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	awsCfg, err := infra.NewAWSConfig(ctx, cfg, apiClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load aws config")
	}

	// Upload ledger (optional)
	var ledger *repo.UploadRepositoryPG
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		ledger = repo.NewUploadRepository(infra.NewSQLRunner(pool, logger))
		if err := ledger.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare upload ledger")
		}
	}

	var (
		backend   storage.Backend
		staticDir string
	)
	switch cfg.StorageDriver {
	case infra.StorageDriverFilesystem:
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init filesystem storage")
		}
		backend, staticDir = fs, fs.BasePath()
	default:
		s3Store, err := storage.NewS3Store(s3.NewFromConfig(awsCfg), storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.AWSRegion,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init s3 storage")
		}
		backend = s3Store
	}

	gatewayOpts := storage.GatewayOptions{Backend: backend, Metrics: collector, Logger: &logger}
	if ledger != nil {
		gatewayOpts.Recorder = ledger
	}
	images, err := storage.NewGateway(gatewayOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init upload gateway")
	}

	moderator, err := moderation.NewGateway(moderation.Options{
		Classifier: rekognition.NewFromConfig(awsCfg),
		HTTPClient: apiClient,
		Timeout:    cfg.HTTPClientTimeout,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init moderation gateway")
	}

	generator, err := runway.NewClient(runway.Options{
		APIKey:     cfg.RunwayAPIKey,
		BaseURL:    cfg.RunwayBaseURL,
		APIVersion: cfg.RunwayAPIVersion,
		HTTPClient: apiClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init generation client")
	}

	poller, err := pipeline.NewPoller(pipeline.PollerOptions{
		Source:   generator,
		Interval: cfg.PollInterval,
		Timeout:  cfg.PollTimeout,
		Metrics:  collector,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init poller")
	}

	fetcher := pipeline.NewFetcher(pipeline.FetcherOptions{
		HTTPClient: &http.Client{},
		Timeout:    cfg.DownloadTimeout,
		Metrics:    collector,
		Logger:     &logger,
	})

	videos, err := pipeline.New(pipeline.Options{
		Moderator: moderator,
		Submitter: generator,
		Waiter:    poller,
		Retriever: fetcher,
		Metrics:   collector,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init pipeline")
	}

	app := handlers.NewApp(videos, images, &logger)
	app.MaxUploadBytes = cfg.MaxUploadBytes
	if ledger != nil {
		app.Uploads = ledger
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		Metrics:            collector,
		Gatherer:           reg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaticDir:          staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("storage", cfg.StorageDriver).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
