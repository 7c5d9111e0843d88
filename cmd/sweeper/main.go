package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"urutibiz/internal/bookings/events"
	"urutibiz/internal/bookings/repository"
	"urutibiz/internal/bookings/service"
	"urutibiz/internal/bookings/validator"
	settingsrepository "urutibiz/internal/settings/repository"
	settingsservice "urutibiz/internal/settings/service"
	"urutibiz/internal/sweeper"
	"urutibiz/pkg/config"
	"urutibiz/pkg/kafka"
	kafka_config "urutibiz/pkg/kafka/config"
	"urutibiz/pkg/tracing"
)

const ServiceName = "sweeper"

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg := config.Load(ServiceName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, ServiceName, cfg.OtelEndpoint, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to set up tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			cfg.Log.Error("Failed to flush traces", "error", err)
		}
	}()

	var opts []service.Option
	if cfg.EventsEnabled {
		kafkaCfg := kafka_config.Load()
		if err := kafkaCfg.Validate(); err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create event producer", "error", err)
		}
		defer producer.Close()
		opts = append(opts, service.WithPublisher(events.NewPublisher(producer)))
	}

	bookingService := service.NewBookingService(
		repository.NewBookingRepository(cfg),
		settingsservice.NewSettingsService(settingsrepository.NewSettingRepository(cfg), cfg),
		validator.NewBookingValidator(cfg.Log),
		cfg,
		opts...,
	)

	runner := sweeper.NewRunner(bookingService, cfg.SweepInterval, cfg.SweepTimeout, cfg.Log,
		sweeper.WithLeases(repository.NewLeaseRepository(cfg)),
	)

	if *once {
		result, err := runner.RunOnce(ctx)
		if err != nil {
			cfg.Log.Error("Sweep failed", "expired", result.Expired, "error", err)
			cfg.GracefulShutdown()
			os.Exit(1)
		}
		cfg.Log.Info("Sweep finished", "expired", result.Expired, "skipped", result.Skipped)
		return
	}

	if err := runner.Start(ctx); err != nil {
		cfg.Log.Fatal("Sweeper failed", "error", err)
	}
}
