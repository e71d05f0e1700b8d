package service

import (
	"content-storefront/internal/client"
	"content-storefront/internal/events"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reconcile outcomes, as stored in the webhook audit trail.
const (
	OutcomeTransitioned       = "transitioned"
	OutcomeNoop               = "noop"
	OutcomeIgnored            = "ignored"
	OutcomeMissingPaymentID   = "missing_payment_id"
	OutcomeFetchError         = "MP_FETCH_ERROR"
	OutcomeMalformedReference = "malformed_reference"
	OutcomeStoreError         = "store_error"
)

// Notification is the untrusted pointer a provider delivers. Only the payment
// id is used; status and amount always come from the provider API.
type Notification struct {
	PaymentID string
	Type      string
	Action    string
}

type notificationBody struct {
	ID     json.RawMessage `json:"id"`
	Type   string          `json:"type"`
	Topic  string          `json:"topic"`
	Action string          `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func rawID(raw json.RawMessage) string {
	return paymentID(strings.Trim(strings.TrimSpace(string(raw)), `"`))
}

// paymentID returns id when it is a provider payment id (decimal digits only)
// and "" otherwise, so it is always safe to place in a request path.
func paymentID(id string) string {
	if id == "" || len(id) > 32 {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}

// ParseNotification accepts both {data:{id}} and {id} bodies, falling back
// to the data.id / id query parameters some deliveries use instead.
func ParseNotification(body []byte, query url.Values) Notification {
	var n Notification

	var b notificationBody
	if len(body) > 0 && json.Unmarshal(body, &b) == nil {
		n.PaymentID = rawID(b.Data.ID)
		if n.PaymentID == "" {
			n.PaymentID = rawID(b.ID)
		}
		n.Type = b.Type
		if n.Type == "" {
			n.Type = b.Topic
		}
		n.Action = b.Action
	}

	if n.PaymentID == "" {
		n.PaymentID = paymentID(query.Get("data.id"))
	}
	if n.PaymentID == "" {
		n.PaymentID = paymentID(query.Get("id"))
	}
	if n.Type == "" {
		n.Type = query.Get("type")
	}
	if n.Type == "" {
		n.Type = query.Get("topic")
	}

	return n
}

type ReconcileResult struct {
	PaymentID string
	Outcome   string
	Err       error
}

type WebhookService interface {
	// Reconcile never fails: the provider is always acknowledged and the
	// outcome is logged and recorded instead.
	Reconcile(ctx context.Context, n Notification) *ReconcileResult
}

type webhookServiceImpl struct {
	mpClient         client.MercadoPagoClient
	purchaseRepo     repository.PurchaseRepository
	webhookEventRepo repository.WebhookEventRepository
	publisher        events.Publisher
	logger           *zap.Logger
	now              func() time.Time
}

func NewWebhookService(
	mpClient client.MercadoPagoClient,
	purchaseRepo repository.PurchaseRepository,
	webhookEventRepo repository.WebhookEventRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) WebhookService {
	return &webhookServiceImpl{
		mpClient:         mpClient,
		purchaseRepo:     purchaseRepo,
		webhookEventRepo: webhookEventRepo,
		publisher:        publisher,
		logger:           logger,
		now:              time.Now,
	}
}

// targetStatus maps a provider status onto the ledger. ok is false for
// statuses that do not settle a purchase.
func targetStatus(status client.PaymentStatus) (model.PurchaseStatus, bool) {
	switch status.(type) {
	case client.StatusApproved:
		return model.PurchaseStatusPaid, true
	case client.StatusRejected, client.StatusCancelled, client.StatusExpired:
		return model.PurchaseStatusExpired, true
	case client.StatusRefunded:
		return model.PurchaseStatusRefunded, true
	}
	return "", false
}

func (s *webhookServiceImpl) Reconcile(ctx context.Context, n Notification) *ReconcileResult {
	receivedAt := s.now().UTC()
	result := s.reconcile(ctx, n, receivedAt)

	event := &model.WebhookEvent{
		Provider:   providerMercadoPago,
		PaymentID:  result.PaymentID,
		Action:     n.Action,
		Outcome:    result.Outcome,
		ReceivedAt: receivedAt,
	}
	if result.Err != nil {
		event.ProcessingError = result.Err.Error()
	}
	if err := s.webhookEventRepo.Record(ctx, event); err != nil {
		s.logger.Warn("record webhook event", zap.String("payment_id", result.PaymentID), zap.Error(err))
	}

	return result
}

func (s *webhookServiceImpl) reconcile(ctx context.Context, n Notification, now time.Time) *ReconcileResult {
	res := &ReconcileResult{PaymentID: n.PaymentID}
	log := s.logger.With(zap.String("payment_id", n.PaymentID), zap.String("type", n.Type))

	if n.Type != "" && n.Type != "payment" {
		res.Outcome = OutcomeIgnored
		log.Debug("ignoring non-payment notification")
		return res
	}
	if paymentID(n.PaymentID) == "" {
		res.Outcome = OutcomeMissingPaymentID
		log.Warn("webhook without a usable payment id")
		return res
	}

	payment, err := s.mpClient.GetPayment(ctx, n.PaymentID)
	if err != nil {
		res.Outcome, res.Err = OutcomeFetchError, err
		log.Error("fetch canonical payment", zap.Error(err))
		return res
	}

	userID, productID, err := DecodeExternalReference(payment.ExternalReference)
	if err != nil {
		res.Outcome, res.Err = OutcomeMalformedReference, err
		log.Error("webhook payment has malformed external reference", zap.Error(err))
		return res
	}
	log = log.With(zap.String("user_id", userID), zap.String("product_id", productID))

	target, ok := targetStatus(payment.Status)
	if !ok {
		res.Outcome = OutcomeIgnored
		log.Info("payment status does not settle purchase", zap.String("status", payment.Status.String()))
		return res
	}

	changed, err := s.purchaseRepo.Transition(ctx, userID, productID, payment.ID, target, string(payment.Raw), now)
	if err != nil {
		res.Outcome, res.Err = OutcomeStoreError, err
		log.Error("transition purchase", zap.String("to", string(target)), zap.Error(err))
		return res
	}
	if !changed {
		res.Outcome = OutcomeNoop
		log.Info("purchase not pending for this payment, transition skipped", zap.String("to", string(target)))
		return res
	}

	res.Outcome = OutcomeTransitioned
	log.Info("purchase transitioned", zap.String("to", string(target)))

	if target == model.PurchaseStatusPaid {
		s.afterPaid(ctx, log, userID, productID, payment, now)
	}

	return res
}

func (s *webhookServiceImpl) afterPaid(ctx context.Context, log *zap.Logger, userID, productID string, payment *client.Payment, now time.Time) {
	purchase, err := s.purchaseRepo.FindByUserProduct(ctx, userID, productID)
	if err != nil {
		log.Warn("reload paid purchase", zap.Error(err))
	} else if purchase.AmountCents != payment.AmountCents {
		log.Warn("paid amount differs from checkout amount",
			zap.Int64("expected_cents", purchase.AmountCents),
			zap.Int64("paid_cents", payment.AmountCents),
		)
	}

	err = events.PublishPurchasePaid(ctx, s.publisher, events.PurchasePaidEvent{
		UserID:          userID,
		ProductID:       productID,
		AmountCents:     payment.AmountCents,
		PaymentProvider: providerMercadoPago,
		PaymentID:       payment.ID,
		PaidAt:          now,
	})
	if err != nil {
		log.Warn("publish purchase paid event", zap.Error(err))
	}
}
