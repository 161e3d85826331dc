package main

import (
	"context"
	"errors"
	"os"

	"expensemanager/internal/amqp"
	"expensemanager/internal/cli"
	"expensemanager/internal/log"
	"expensemanager/internal/services"
	"expensemanager/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notification consumer")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPNotifyQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewNotificationWorker(client, services.NewConsoleNotifier(os.Stdout), worker.DefaultRetryDelay, logger)

	logger.Info("Starting expense notifier",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPNotifyQueue,
		log.FieldOperation, log.OpStartup)

	if err := w.Run(log.NewContext(ctx, logger)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Expense notifier stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Expense notifier stopped")
}
