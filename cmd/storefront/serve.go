package main

import (
	"content-storefront/internal/client"
	"content-storefront/internal/events"
	"content-storefront/internal/middleware"
	"content-storefront/internal/server"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	auth, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, map[string]string{
			events.PurchasePaid: cfg.Kafka.PurchasePaidTopic,
		})
		if err != nil {
			return err
		}
		publisher = kp
		logger.Info("publishing purchase events", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	var limiter middleware.Limiter
	if cfg.Redis.URL != "" {
		rdb, err := client.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, redemption throttling disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, "storefront:redeem:", cfg.Redis.RedeemMax, cfg.Redis.RedeemWindow)
		}
	}

	a, err := newApp(cfg, logger, publisher)
	if err != nil {
		publisher.Close()
		return err
	}
	defer a.Close()

	srv := server.NewServer(server.Deps{
		GrantService:    a.grantService,
		CheckoutService: a.checkoutService,
		WebhookService:  a.webhookService,
		UserService:     a.userService,
		Auth:            auth,
		RedeemLimiter:   limiter,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		Logger:          logger,
	})

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	logger.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("environment", cfg.Environment.Name))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.Info("signal received, starting graceful shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
