package main

import (
	"content-storefront/internal/client"
	"content-storefront/internal/config"
	"content-storefront/internal/events"
	"content-storefront/internal/repository"
	"content-storefront/internal/service"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func loadConfig() (*config.Config, error) {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zcfg.Level = level
	if cfg.Log.Format == "console" || cfg.Log.Format == "json" {
		zcfg.Encoding = cfg.Log.Format
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// app is the wired object graph shared by serve and the admin commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB

	visits    service.VisitRecorder
	publisher events.Publisher

	grantService    service.GrantService
	checkoutService service.CheckoutService
	webhookService  service.WebhookService
	userService     service.UserService
}

func newApp(cfg *config.Config, logger *zap.Logger, publisher events.Publisher) (*app, error) {
	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := client.Migrate(db); err != nil {
		client.CloseDB(db)
		return nil, err
	}

	mpClient := client.NewMercadoPagoClient(&cfg.MercadoPago)

	linkRepo := repository.NewAccessLinkRepository(db)
	productRepo := repository.NewProductRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	visits := service.NewVisitRecorder(visitRepo, cfg.Access.VisitLogTimeout, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		visits:    visits,
		publisher: publisher,
		grantService: service.NewGrantService(
			db, cfg.Access.PublicBaseURL,
			linkRepo, productRepo, catalogRepo, purchaseRepo, visitRepo,
			visits, publisher, logger,
		),
		checkoutService: service.NewCheckoutService(
			mpClient, cfg.MercadoPago.PayerEmail,
			productRepo, catalogRepo, purchaseRepo,
			logger,
		),
		webhookService: service.NewWebhookService(
			mpClient, purchaseRepo, webhookEventRepo, publisher, logger,
		),
		userService: service.NewUserService(catalogRepo, productRepo, purchaseRepo),
	}, nil
}

// Close waits for pending visit writes, then releases the publisher and db.
func (a *app) Close() {
	a.visits.Wait()
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close event publisher", zap.Error(err))
	}
	if err := client.CloseDB(a.db); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}
