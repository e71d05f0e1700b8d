package service

import (
	"content-storefront/internal/client"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const providerMercadoPago = "mercadopago"

type CheckoutInput struct {
	UserID     string
	ProductID  string
	PayerEmail string
}

// PixPayload is what the buyer needs to pay: the copy-paste code, the QR
// image and the amount.
type PixPayload struct {
	PaymentID    string
	PixCopiaCola string
	QRCodeBase64 string
	TicketURL    string
	AmountCents  int64
	ProductName  string
	ModelName    string
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (*PixPayload, error)
}

type checkoutServiceImpl struct {
	mpClient          client.MercadoPagoClient
	defaultPayerEmail string
	productRepo       repository.ProductRepository
	catalogRepo       repository.CatalogRepository
	purchaseRepo      repository.PurchaseRepository
	logger            *zap.Logger
}

func NewCheckoutService(
	mpClient client.MercadoPagoClient,
	defaultPayerEmail string,
	productRepo repository.ProductRepository,
	catalogRepo repository.CatalogRepository,
	purchaseRepo repository.PurchaseRepository,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		mpClient:          mpClient,
		defaultPayerEmail: defaultPayerEmail,
		productRepo:       productRepo,
		catalogRepo:       catalogRepo,
		purchaseRepo:      purchaseRepo,
		logger:            logger,
	}
}

func (s *checkoutServiceImpl) CreateCheckout(ctx context.Context, in CheckoutInput) (*PixPayload, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ProductID) == "" {
		return nil, fmt.Errorf("%w: user id and product id are required", model.ErrInvalidInput)
	}

	product, err := s.productRepo.FindByID(ctx, nil, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Status != model.ProductStatusActive {
		return nil, model.ErrProductUnavailable
	}

	modelName := ""
	creator, err := s.catalogRepo.FindModel(ctx, product.ModelID)
	switch {
	case err == nil:
		modelName = creator.Name
	case !errors.Is(err, model.ErrModelNotFound):
		return nil, err
	}

	purchase, err := s.purchaseRepo.UpsertPending(ctx, nil, in.UserID, product.ID, product.PriceCents, providerMercadoPago)
	if err != nil {
		return nil, fmt.Errorf("upsert pending purchase: %w", err)
	}
	switch purchase.Status {
	case model.PurchaseStatusPending:
	case model.PurchaseStatusPaid:
		return nil, model.ErrAlreadyPaid
	default:
		return nil, fmt.Errorf("purchase is %s: %w", purchase.Status, model.ErrPurchaseNotPending)
	}

	payerEmail := in.PayerEmail
	if payerEmail == "" {
		payerEmail = s.defaultPayerEmail
	}

	resp, err := s.mpClient.CreatePixPayment(ctx, &client.PixPaymentRequest{
		IdempotencyKey:    uuid.NewString(),
		AmountCents:       product.PriceCents,
		Description:       product.Name,
		PayerEmail:        payerEmail,
		ExternalReference: EncodeExternalReference(in.UserID, product.ID),
	})
	if err != nil {
		// the pending row stays; a retry reuses it
		return nil, fmt.Errorf("create pix payment: %w", err)
	}

	attached, err := s.purchaseRepo.AttachPayment(ctx, in.UserID, product.ID, resp.PaymentID, string(resp.Raw))
	if err != nil {
		return nil, fmt.Errorf("attach payment to purchase: %w", err)
	}
	if !attached {
		s.logger.Warn("purchase left pending state before payment was attached",
			zap.String("user_id", in.UserID),
			zap.String("product_id", product.ID),
			zap.String("payment_id", resp.PaymentID),
		)
	}

	s.logger.Info("pix checkout created",
		zap.String("user_id", in.UserID),
		zap.String("product_id", product.ID),
		zap.String("payment_id", resp.PaymentID),
		zap.Int64("amount_cents", product.PriceCents),
	)

	return &PixPayload{
		PaymentID:    resp.PaymentID,
		PixCopiaCola: resp.QRCode,
		QRCodeBase64: resp.QRCodeBase64,
		TicketURL:    resp.TicketURL,
		AmountCents:  product.PriceCents,
		ProductName:  product.Name,
		ModelName:    modelName,
	}, nil
}
