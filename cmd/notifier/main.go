package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/notify"

	"go.uber.org/zap"
)

// The notifier worker drains the mail queue and sends each notification
// over SMTP. A failed send is requeued.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.FromEnvFile()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if cfg.RabbitMQURL == "" || cfg.SMTPHost == "" {
		return errors.New("RABBITMQ_URL and SMTP_HOST are required")
	}

	broker, err := notify.Dial(cfg.RabbitMQURL, cfg.NotifyExchange)
	if err != nil {
		return err
	}
	defer broker.Close()

	deliveries, err := broker.Consume(notify.MailQueue)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notify.NewMailer(notify.MailerConfig{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		User:         cfg.SMTPUser,
		Password:     cfg.SMTPPassword,
		From:         cfg.MailFrom,
		ContactInbox: cfg.ContactInbox,
	})

	logger.L().Info("notifier consuming", zap.String("queue", notify.MailQueue))
	err = notify.NewConsumer(mailer).Run(ctx, deliveries)
	if errors.Is(err, notify.ErrDeliveriesClosed) {
		logger.L().Error("broker closed the delivery channel")
	}
	return err
}
