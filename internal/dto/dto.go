package dto

import (
	"content-storefront/internal/model"
	"time"
)

type ConsumeRequest struct {
	Token        string `json:"token"`
	VisitorName  string `json:"visitor_name,omitempty"`
	VisitorEmail string `json:"visitor_email,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// ConsumeResponse is always sent with HTTP 200; OK=false plus Code carries
// the failure.
type ConsumeResponse struct {
	OK      bool                 `json:"ok"`
	Code    model.FailureCode    `json:"code,omitempty"`
	Message string               `json:"message,omitempty"`
	Grant   *model.ResolvedGrant `json:"grant,omitempty"`
}

func ConsumeFailure(code model.FailureCode) *ConsumeResponse {
	return &ConsumeResponse{
		OK:      false,
		Code:    code,
		Message: code.Message(),
	}
}

type CheckoutRequest struct {
	ProductID  string `json:"productId"`
	UserID     string `json:"userId,omitempty"`
	PayerEmail string `json:"payerEmail,omitempty"`
}

type CheckoutResponse struct {
	OK           bool   `json:"ok"`
	PaymentID    string `json:"paymentId,omitempty"`
	PixCopiaCola string `json:"pixCopiaCola,omitempty"`
	QRCodeURL    string `json:"qrCodeUrl,omitempty"`
	TicketURL    string `json:"ticketUrl,omitempty"`
	AmountCents  int64  `json:"amountCents,omitempty"`
	ProductName  string `json:"productName,omitempty"`
	ModelName    string `json:"modelName,omitempty"`
	Message      string `json:"message,omitempty"`
}

type EvaluateRequest struct {
	ModelID string               `json:"model_id"`
	Grant   *model.ResolvedGrant `json:"grant,omitempty"`
}

type MediaVerdict struct {
	MediaID string `json:"media_id"`
	Title   string `json:"title"`
	Verdict string `json:"verdict"`
}

type EvaluateResponse struct {
	ModelID string          `json:"model_id"`
	Items   []*MediaVerdict `json:"items"`
}

type Purchase struct {
	ProductID       string     `json:"product_id"`
	Status          string     `json:"status"`
	AmountCents     int64      `json:"amount_cents"`
	PaymentProvider string     `json:"payment_provider"`
	PaymentID       *string    `json:"payment_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

func NewPurchase(p *model.Purchase) *Purchase {
	return &Purchase{
		ProductID:       p.ProductID,
		Status:          string(p.Status),
		AmountCents:     p.AmountCents,
		PaymentProvider: p.PaymentProvider,
		PaymentID:       p.PaymentID,
		CreatedAt:       p.CreatedAt,
		PaidAt:          p.PaidAt,
	}
}

type CreateLinkRequest struct {
	Scope     string     `json:"scope"`
	LinkType  string     `json:"link_type"`
	ModelID   string     `json:"model_id,omitempty"`
	ProductID string     `json:"product_id,omitempty"`
	Label     string     `json:"label,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	MaxUses   *int       `json:"max_uses,omitempty"`
}

type Link struct {
	ID          string     `json:"id"`
	Scope       string     `json:"scope"`
	LinkType    string     `json:"link_type"`
	ModelID     *string    `json:"model_id,omitempty"`
	ProductID   *string    `json:"product_id,omitempty"`
	Label       string     `json:"label,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	Uses        int        `json:"uses"`
	Active      bool       `json:"active"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FirstUsedAt *time.Time `json:"first_used_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

func NewLink(l *model.AccessLink) *Link {
	return &Link{
		ID:          l.ID,
		Scope:       string(l.Scope),
		LinkType:    string(l.LinkType),
		ModelID:     l.ModelID,
		ProductID:   l.ProductID,
		Label:       l.Label,
		ExpiresAt:   l.ExpiresAt,
		MaxUses:     l.MaxUses,
		Uses:        l.Uses,
		Active:      l.Active,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   l.CreatedAt,
		FirstUsedAt: l.FirstUsedAt,
		LastUsedAt:  l.LastUsedAt,
	}
}

// CreateLinkResponse is the only response that ever carries the raw token.
type CreateLinkResponse struct {
	Link  *Link  `json:"link"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

type Visit struct {
	VisitedAt    time.Time `json:"visited_at"`
	VisitorName  *string   `json:"visitor_name,omitempty"`
	VisitorEmail *string   `json:"visitor_email,omitempty"`
	UserID       *string   `json:"user_id,omitempty"`
	UserAgent    string    `json:"user_agent"`
	IP           string    `json:"ip"`
	Outcome      string    `json:"outcome"`
}

func NewVisit(v *model.AccessLinkVisit) *Visit {
	return &Visit{
		VisitedAt:    v.VisitedAt,
		VisitorName:  v.VisitorName,
		VisitorEmail: v.VisitorEmail,
		UserID:       v.UserID,
		UserAgent:    v.UserAgent,
		IP:           v.IP,
		Outcome:      v.Outcome,
	}
}
