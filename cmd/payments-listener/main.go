package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"urutibiz/internal/bookings/events"
	"urutibiz/internal/bookings/repository"
	"urutibiz/internal/bookings/service"
	"urutibiz/internal/bookings/validator"
	settingsrepository "urutibiz/internal/settings/repository"
	settingsservice "urutibiz/internal/settings/service"
	"urutibiz/pkg/config"
	"urutibiz/pkg/kafka"
	kafka_config "urutibiz/pkg/kafka/config"
	kafkamiddleware "urutibiz/pkg/kafka/middleware"
	"urutibiz/pkg/tracing"
)

const ServiceName = "payments-listener"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

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

	payments := events.NewPaymentHandler(bookingService, cfg.Log)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.KafkaPaymentTopic,
		kafkaCfg.ConsumerGroupID,
		cfg.KafkaPaymentDLQTopic,
		payments.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment consumer", "error", err)
	}

	metrics := &kafkamiddleware.Metrics{}
	consumer.Use(kafkamiddleware.MetricsConsumerMiddleware(metrics))
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Listening for payment events", "topic", cfg.KafkaPaymentTopic, "group", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Payment consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close payment consumer", "error", err)
	}
	metrics.Log(cfg.Log)
}
