package client

import (
	"bytes"
	"content-storefront/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type MercadoPagoClient interface {
	CreatePixPayment(ctx context.Context, req *PixPaymentRequest) (*PixPaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

type mercadoPagoClientImpl struct {
	httpClient      *http.Client
	baseApiURL      string
	accessToken     string
	notificationURL string
}

type PixPaymentRequest struct {
	IdempotencyKey    string
	AmountCents       int64
	Description       string
	PayerEmail        string
	ExternalReference string
}

type PixPaymentResponse struct {
	PaymentID    string
	Status       PaymentStatus
	QRCode       string // Pix "copia e cola" payload
	QRCodeBase64 string
	TicketURL    string
	Raw          json.RawMessage
}

// Payment is the canonical payment object as returned by GET /v1/payments/{id}.
type Payment struct {
	ID                string
	Status            PaymentStatus
	StatusDetail      string
	ExternalReference string
	AmountCents       int64
	Raw               json.RawMessage
}

type mpPayer struct {
	Email string `json:"email"`
}

type mpCreatePaymentPayload struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Payer             mpPayer     `json:"payer"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
}

type mpTransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

type mpPointOfInteraction struct {
	TransactionData mpTransactionData `json:"transaction_data"`
}

type mpPaymentResult struct {
	ID                 int64                `json:"id"`
	Status             string               `json:"status"`
	StatusDetail       string               `json:"status_detail"`
	ExternalReference  string               `json:"external_reference"`
	TransactionAmount  decimal.Decimal      `json:"transaction_amount"`
	PointOfInteraction mpPointOfInteraction `json:"point_of_interaction"`
}

func NewMercadoPagoClient(mpCfg *config.MercadoPago) MercadoPagoClient {
	return &mercadoPagoClientImpl{
		httpClient: &http.Client{
			Timeout: mpCfg.Timeout,
		},
		baseApiURL:      mpCfg.BaseApiURL,
		accessToken:     mpCfg.AccessToken,
		notificationURL: mpCfg.NotificationURL,
	}
}

// CentsToAmount converts integer cents to the provider's decimal amount.
func CentsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// AmountToCents is the inverse of CentsToAmount, truncating sub-cent digits.
func AmountToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func (c *mercadoPagoClientImpl) CreatePixPayment(ctx context.Context, req *PixPaymentRequest) (*PixPaymentResponse, error) {
	payload := mpCreatePaymentPayload{
		TransactionAmount: json.Number(CentsToAmount(req.AmountCents).StringFixed(2)),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer:             mpPayer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.notificationURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mercadopago create payment: %w", err)
	}

	var result mpPaymentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode mercadopago response: %w", err)
	}

	td := result.PointOfInteraction.TransactionData
	return &PixPaymentResponse{
		PaymentID:    strconv.FormatInt(result.ID, 10),
		Status:       ParsePaymentStatus(result.Status),
		QRCode:       td.QRCode,
		QRCodeBase64: td.QRCodeBase64,
		TicketURL:    td.TicketURL,
		Raw:          raw,
	}, nil
}

func (c *mercadoPagoClientImpl) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseApiURL, url.PathEscape(paymentID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create get payment request: %w", err)
	}

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mercadopago get payment %s: %w", paymentID, err)
	}

	var result mpPaymentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode mercadopago payment: %w", err)
	}

	return &Payment{
		ID:                strconv.FormatInt(result.ID, 10),
		Status:            ParsePaymentStatus(result.Status),
		StatusDetail:      result.StatusDetail,
		ExternalReference: result.ExternalReference,
		AmountCents:       AmountToCents(result.TransactionAmount),
		Raw:               raw,
	}, nil
}

func (c *mercadoPagoClientImpl) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mercadopago error %d after %s: %s", resp.StatusCode, time.Since(start), string(body))
	}

	return body, nil
}
