package main

import (
	"context"

	"urutibiz/internal/bookings/events"
	"urutibiz/internal/bookings/handler"
	"urutibiz/internal/bookings/repository"
	"urutibiz/internal/bookings/service"
	"urutibiz/internal/bookings/validator"
	"urutibiz/internal/health"
	settingshandler "urutibiz/internal/settings/handler"
	settingsrepository "urutibiz/internal/settings/repository"
	settingsservice "urutibiz/internal/settings/service"
	"urutibiz/pkg/app"
	"urutibiz/pkg/config"
	"urutibiz/pkg/kafka"
	kafka_config "urutibiz/pkg/kafka/config"
	kafkamiddleware "urutibiz/pkg/kafka/middleware"
	"urutibiz/pkg/tracing"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	cfg.SetRedis()

	shutdownTracing, err := tracing.Setup(context.Background(), ServiceName, cfg.OtelEndpoint, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to set up tracing", "error", err)
	}

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	bookingRepo := repository.NewBookingRepository(cfg)
	settingRepo := settingsrepository.NewSettingRepository(cfg)
	settings := settingsservice.NewSettingsService(settingRepo, cfg)

	var opts []service.Option
	if cfg.EventsEnabled {
		producer, metrics := newEventProducer(cfg)
		opts = append(opts, service.WithPublisher(events.NewPublisher(producer)))
		serverApp.OnShutdown(func(ctx context.Context) {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close event producer", "error", err)
			}
			metrics.Log(cfg.Log)
		})
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		settings,
		validator.NewBookingValidator(cfg.Log),
		cfg,
		opts...,
	)
	cfg.Log.Info("Booking service initialized", "store", cfg.StoreDriver)

	healthHandler := health.NewHandler(cfg.Log,
		health.Check{Name: "bookings", Ping: bookingRepo.Ping},
		health.Check{Name: "settings", Ping: settingRepo.Ping},
	)

	serverApp.SetApp(healthHandler,
		handler.NewBookingHandler(bookingService, cfg.Log),
		settingshandler.NewSettingsHandler(settings, cfg.Log),
	)
	serverApp.OnShutdown(func(ctx context.Context) {
		if err := shutdownTracing(ctx); err != nil {
			cfg.Log.Error("Failed to flush traces", "error", err)
		}
	})
	serverApp.Run()
}

func newEventProducer(cfg *config.Config) (*kafka.Producer, *kafkamiddleware.Metrics) {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create event producer", "error", err)
	}
	metrics := &kafkamiddleware.Metrics{}
	producer.Use(kafkamiddleware.MetricsProducerMiddleware(metrics))
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	}
	cfg.Log.Info("Booking events enabled", "topic", cfg.KafkaBookingTopic)
	return producer, metrics
}
