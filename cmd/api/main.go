package main

import (
	"context"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"meetscribe/internal/ai"
	"meetscribe/internal/audio"
	"meetscribe/internal/config"
	"meetscribe/internal/database"
	"meetscribe/internal/database/migration"
	handlers "meetscribe/internal/http/handler"
	"meetscribe/internal/http/middleware"
	"meetscribe/internal/otel"
	"meetscribe/internal/repository/postgres"
	"meetscribe/internal/service"
	"meetscribe/internal/storage"
	"meetscribe/internal/tempfile"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logrus.NewEntry(logger)

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object storage")
	}

	meetingRepo := postgres.NewMeetingPostgres(db)
	transcriber := ai.NewOpenAITranscriber(cfg.OpenAI, log)
	summarizer := ai.NewOpenAISummarizer(cfg.OpenAI, log)
	extractor := audio.NewExtractor(log)
	staging := tempfile.NewManager("", log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	meetingSvc := service.NewMeetingService(meetingRepo, objStore)
	pipelineSvc, err := service.NewPipelineService(meetingRepo, objStore, transcriber, summarizer, extractor, staging, cfg.Upload, log, reg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize pipeline")
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.WithError(err).Fatal("failed to register request metrics")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1024*1024,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, meetingSvc, pipelineSvc, cfg.Auth.JWTSecret)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
