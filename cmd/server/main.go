package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/config"
	"storefront-be/internal/contact"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/notify"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"
	"storefront-be/internal/user"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Overridden in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type routes struct {
	user    *user.Handler
	product *product.Handler
	cart    *cart.Handler
	order   *order.Handler
	contact *contact.Handler
	webhook http.HandlerFunc
	health  http.HandlerFunc
}

func setupRouter(ctx context.Context, cfg *config.Config, tokens *auth.Manager, rt routes) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.ClientOrigin))
	r.Use(middleware.AuthMiddleware(tokens))
	r.Use(middleware.NewRateLimiter(ctx).Middleware)

	r.Get("/health", rt.health)
	if rt.webhook != nil {
		r.Post("/stripe", rt.webhook)
	}

	r.Route("/api/user", rt.user.Routes)
	r.Route("/api/product", rt.product.Routes)
	r.Route("/api/cart", rt.cart.Routes)
	r.Route("/api/order", rt.order.Routes)
	r.Route("/api/contact", rt.contact.Routes)
	return r
}

// newNotifier prefers the broker, then direct SMTP, then logging only. The
// returned close func is never nil.
func newNotifier(cfg *config.Config) (notify.Dispatcher, func() error, error) {
	noop := func() error { return nil }

	if cfg.RabbitMQURL != "" {
		broker, err := notify.Dial(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err != nil {
			return nil, noop, err
		}
		return broker.Publisher(), broker.Close, nil
	}

	if cfg.SMTPHost != "" {
		return notify.NewMailer(mailerConfig(cfg)), noop, nil
	}

	logger.L().Warn("no RABBITMQ_URL or SMTP_HOST, notifications are only logged")
	return notify.LogOnly, noop, nil
}

func mailerConfig(cfg *config.Config) notify.MailerConfig {
	return notify.MailerConfig{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		User:         cfg.SMTPUser,
		Password:     cfg.SMTPPassword,
		From:         cfg.MailFrom,
		ContactInbox: cfg.ContactInbox,
	}
}

func newGateway(cfg *config.Config) payment.Gateway {
	if cfg.StripeSecretKey == "" {
		logger.L().Warn("STRIPE_SECRET_KEY not set, online payment is disabled")
		return nil
	}

	gw, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.StripeCurrency,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		logger.L().Error("failed to configure stripe", zap.Error(err))
		return nil
	}
	return gw
}

func newServer(ctx context.Context, cfg *config.Config, database *sql.DB, notifier notify.Dispatcher) http.Handler {
	tokens := auth.NewManager(cfg.JWTSecret, 0)
	stats := metrics.NewStats()
	gateway := newGateway(cfg)

	productRepo := product.NewRepository(database)
	cartRepo := cart.NewRepository(database)
	paymentRepo := payment.NewRepository(database)

	userSvc := user.NewService(user.NewRepository(database), tokens)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userSvc.EnsureOperator(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.L().Error("failed to seed operator account", zap.Error(err))
		}
	}
	productSvc := product.NewService(productRepo)
	orderSvc := order.NewService(
		order.NewRepository(database), productRepo, paymentRepo, gateway, notifier,
		order.Options{ClientOrigin: cfg.ClientOrigin, Currency: cfg.StripeCurrency, Stats: stats},
	)

	rt := routes{
		user:    user.NewHandler(userSvc, tokens, cfg.AppEnv == "production"),
		product: product.NewHandler(productSvc),
		cart:    cart.NewHandler(cartRepo),
		order:   order.NewHandler(orderSvc),
		contact: contact.NewHandler(notifier),
		health:  stats.Handler(database),
	}
	if gateway != nil {
		wh := webhook.NewWebhookHandler(orderSvc, gateway, paymentRepo, cartRepo)
		wh.Stats = stats
		rt.webhook = wh.PaymentWebhookHandler
	}

	return setupRouter(ctx, cfg, tokens, rt)
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(ctx, cfg, database, notifier),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
