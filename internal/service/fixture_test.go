package service

import (
	"content-storefront/internal/repository"
	"content-storefront/internal/testutil"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	catalog   *testutil.Catalog
	links     repository.AccessLinkRepository
	products  repository.ProductRepository
	catalogs  repository.CatalogRepository
	purchases repository.PurchaseRepository
	visits    repository.VisitRepository
	webhooks  repository.WebhookEventRepository
	recorder  VisitRecorder
	mp        *testutil.FakeMercadoPago
	publisher *testutil.RecordingPublisher
	logger    *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	visits := repository.NewVisitRepository(db)

	f := &fixture{
		db:        db,
		catalog:   testutil.SeedCatalog(t, db),
		links:     repository.NewAccessLinkRepository(db),
		products:  repository.NewProductRepository(db),
		catalogs:  repository.NewCatalogRepository(db),
		purchases: repository.NewPurchaseRepository(db),
		visits:    visits,
		webhooks:  repository.NewWebhookEventRepository(db),
		recorder:  NewVisitRecorder(visits, 5*time.Second, logger),
		mp:        testutil.NewFakeMercadoPago(),
		publisher: &testutil.RecordingPublisher{},
		logger:    logger,
	}
	// drain async visit writes before the database is closed
	t.Cleanup(f.recorder.Wait)
	return f
}

func (f *fixture) grantService() *grantServiceImpl {
	return NewGrantService(
		f.db, "https://shop.example/",
		f.links, f.products, f.catalogs, f.purchases, f.visits,
		f.recorder, f.publisher, f.logger,
	).(*grantServiceImpl)
}

func (f *fixture) checkoutService() CheckoutService {
	return NewCheckoutService(f.mp, "buyer@shop.example", f.products, f.catalogs, f.purchases, f.logger)
}

func (f *fixture) webhookService() *webhookServiceImpl {
	return NewWebhookService(f.mp, f.purchases, f.webhooks, f.publisher, f.logger).(*webhookServiceImpl)
}
