package testutil

import (
	"content-storefront/internal/client"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// FakeMercadoPago is an in-memory payment provider. Created payments start
// pending; tests move them with SetStatus.
type FakeMercadoPago struct {
	mu       sync.Mutex
	payments map[string]*client.Payment
	seq      int

	Requests  []*client.PixPaymentRequest
	CreateErr error
	GetErr    error
}

func NewFakeMercadoPago() *FakeMercadoPago {
	return &FakeMercadoPago{payments: make(map[string]*client.Payment)}
}

func (f *FakeMercadoPago) CreatePixPayment(_ context.Context, req *client.PixPaymentRequest) (*client.PixPaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.seq++
	id := fmt.Sprintf("%d", 1000+f.seq)
	f.payments[id] = &client.Payment{
		ID:                id,
		Status:            client.StatusPending{},
		ExternalReference: req.ExternalReference,
		AmountCents:       req.AmountCents,
	}

	raw, _ := json.Marshal(map[string]any{"id": id, "status": "pending"})
	return &client.PixPaymentResponse{
		PaymentID:    id,
		Status:       client.StatusPending{},
		QRCode:       "00020126PIX" + id,
		QRCodeBase64: "iVBORw0KGgo=",
		TicketURL:    "https://mp.example/ticket/" + id,
		Raw:          raw,
	}, nil
}

func (f *FakeMercadoPago) GetPayment(_ context.Context, paymentID string) (*client.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return nil, f.GetErr
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("mercadopago error 404: payment %s not found", paymentID)
	}

	cp := *p
	cp.Raw, _ = json.Marshal(map[string]any{"id": p.ID, "status": p.Status.String()})
	return &cp, nil
}

// PutPayment registers a payment as if it had been created elsewhere.
func (f *FakeMercadoPago) PutPayment(p *client.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = p
}

func (f *FakeMercadoPago) SetStatus(paymentID string, status client.PaymentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[paymentID]; ok {
		p.Status = status
	}
}

type PublishedEvent struct {
	Type    string
	Payload []byte
	Key     string
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Type: eventType, Payload: payload, Key: key})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
