package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/arcgis"
	httpadapter "github.com/couchcryptid/wildfire-evac-planner/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-evac-planner/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/mapbox"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/nws"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/openweather"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/osrm"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/overpass"
	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-evac-planner/internal/alert"
	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/ingestion"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
	"github.com/couchcryptid/wildfire-evac-planner/internal/planner"
	"github.com/couchcryptid/wildfire-evac-planner/internal/route"
	"github.com/couchcryptid/wildfire-evac-planner/internal/safety"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := sqlite.NewHazardStore(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open hazard store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Urban classification is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var urban domain.UrbanClassifier
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		urban = mapbox.NewCachedClassifier(client, cfg.MapboxCacheSize, metrics)
		metrics.ClassifierEnabled.Set(1)
		logger.Info("mapbox urban classification enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox urban classification disabled")
	}

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set; every plan will end in the error state")
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers,
			"plan_topic", cfg.KafkaPlanTopic, "risk_topic", cfg.KafkaRiskTopic)
	}

	riskService := alert.NewService(
		nws.NewClient(cfg.NWSURL, cfg.NWSUserAgent, cfg.CallTimeout, logger),
		urban,
		alert.NewProcessor(alert.NewDeduplicator(cfg.Dedupe), metrics),
		alert.NewScorer(cfg.Risk),
		cfg.CallTimeout,
		logger,
		metrics,
	)

	deps := planner.Collaborators{
		Wind:       openweather.NewClient(cfg.OpenWeatherURL, cfg.OpenWeatherAPIKey, cfg.CallTimeout, logger),
		Facilities: overpass.NewClient(cfg.OverpassURL, cfg.CallTimeout, logger),
		Router:     osrm.NewClient(cfg.OSRMURL, cfg.CallTimeout, logger),
		Risk:       riskService,
	}
	if publisher != nil {
		riskService.WithPublisher(publisher)
	}

	engine := planner.New(deps,
		safety.NewFilter(cfg.Scoring.ConeHalfAngle, logger),
		route.NewScorer(cfg.Scoring),
		planner.Options{
			CallTimeout:        cfg.CallTimeout,
			RoutingConcurrency: cfg.RoutingConcurrency,
			SearchRadiusMeters: cfg.SearchRadiusMeters,
		},
		logger,
		metrics,
	)
	coordinator := planner.NewCoordinator(engine, logger, metrics)
	if publisher != nil {
		coordinator.WithPublisher(publisher)
	}

	var ingestor *ingestion.Ingestor
	if cfg.IngestEnabled {
		ingestor = ingestion.New(
			arcgis.NewClient(cfg.ArcGISURL, cfg.CallTimeout, logger),
			store,
			nil,
			ingestion.Options{
				Interval:   cfg.HazardPollInterval,
				Workers:    cfg.WorkerCount,
				BufferSize: cfg.WorkerBufferSize,
			},
			logger,
			metrics,
		)
	}

	ready := observability.AllReady(store)
	if ingestor != nil {
		ready = observability.AllReady(store, ingestor)
	}

	handler := httpadapter.NewHandler(coordinator, riskService, store, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, handler, ready, cfg.RateLimitRPS, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start hazard ingestion.
	var wg sync.WaitGroup
	if ingestor != nil {
		wg.Go(func() {
			if err := ingestor.Run(ctx); err != nil {
				logger.Error("hazard ingestion error", "error", err)
			}
		})
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("hazard store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
