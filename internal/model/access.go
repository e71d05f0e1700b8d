package model

import (
	"errors"
	"time"
)

type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeModel   Scope = "model"
	ScopeProduct Scope = "product"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeModel, ScopeProduct:
		return true
	}
	return false
}

// LinkType distinguishes a temporary, client-cached unlock (access) from a
// permanent unlock that writes a paid purchase (grant).
type LinkType string

const (
	LinkTypeAccess LinkType = "access"
	LinkTypeGrant  LinkType = "grant"
)

func (t LinkType) Valid() bool {
	return t == LinkTypeAccess || t == LinkTypeGrant
}

type PurchaseStatus string

const (
	PurchaseStatusPending  PurchaseStatus = "pending"
	PurchaseStatusPaid     PurchaseStatus = "paid"
	PurchaseStatusExpired  PurchaseStatus = "expired"
	PurchaseStatusRefunded PurchaseStatus = "refunded"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// PaymentProviderGrantLink marks purchases created by consuming a grant link.
const PaymentProviderGrantLink = "grant_link"

var (
	ErrInvalidScope       = errors.New("invalid scope")
	ErrInvalidLinkType    = errors.New("invalid link type")
	ErrScopeRefMismatch   = errors.New("model/product references do not match scope")
	ErrGlobalGrant        = errors.New("grant links must target a model or a product")
	ErrInvalidMaxUses     = errors.New("max uses must be positive")
	ErrNoBaseMembership   = errors.New("model has no base membership product")
	ErrLinkNotFound       = errors.New("access link not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrModelNotFound      = errors.New("model not found")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseNotPending = errors.New("purchase is not pending")
	ErrAlreadyPaid        = errors.New("product already purchased")
	ErrProductUnavailable = errors.New("product is not available for sale")
	ErrMalformedReference = errors.New("malformed external reference")
	ErrInvalidInput       = errors.New("invalid input")
)

// Validate checks the scope/type/reference invariants of a link.
func (l *AccessLink) Validate() error {
	if !l.Scope.Valid() {
		return ErrInvalidScope
	}
	if !l.LinkType.Valid() {
		return ErrInvalidLinkType
	}
	switch l.Scope {
	case ScopeGlobal:
		if l.ModelID != nil || l.ProductID != nil {
			return ErrScopeRefMismatch
		}
		if l.LinkType == LinkTypeGrant {
			return ErrGlobalGrant
		}
	case ScopeModel:
		if l.ModelID == nil || *l.ModelID == "" {
			return ErrScopeRefMismatch
		}
	case ScopeProduct:
		if l.ProductID == nil || *l.ProductID == "" {
			return ErrScopeRefMismatch
		}
	}
	if l.MaxUses != nil && *l.MaxUses <= 0 {
		return ErrInvalidMaxUses
	}
	return nil
}

// ResolvedGrant is what a successful consumption hands back to the client.
// LocalExpiresAt is only ever set by the client-side cache.
type ResolvedGrant struct {
	LinkID         string     `json:"-"`
	Scope          Scope      `json:"scope"`
	LinkType       LinkType   `json:"link_type"`
	ModelID        *string    `json:"model_id"`
	ProductID      *string    `json:"product_id"`
	ExpiresAt      *time.Time `json:"expires_at"`
	LocalExpiresAt *time.Time `json:"local_expires_at,omitempty"`
}

// Unlocks reports whether the grant covers content of the given model.
func (g *ResolvedGrant) Unlocks(modelID string) bool {
	if g == nil {
		return false
	}
	switch g.Scope {
	case ScopeGlobal:
		return true
	case ScopeModel:
		return g.ModelID != nil && *g.ModelID == modelID
	}
	return false
}

// FailureCode is the stable, machine-readable reason a consume was refused.
type FailureCode string

const (
	CodeInvalidLink     FailureCode = "INVALID_LINK"
	CodeInactiveLink    FailureCode = "INACTIVE_LINK"
	CodeExpiredLink     FailureCode = "EXPIRED_LINK"
	CodeMaxUses         FailureCode = "MAX_USES"
	CodeEmailRequired   FailureCode = "EMAIL_REQUIRED"
	CodeLoginRequired   FailureCode = "LOGIN_REQUIRED"
	CodePurchaseClosed  FailureCode = "PURCHASE_CLOSED"
	CodeRateLimited     FailureCode = "RATE_LIMITED"
	CodeUnexpectedError FailureCode = "UNEXPECTED_ERROR"
)

var failureMessages = map[FailureCode]string{
	CodeInvalidLink:     "This access link is not valid.",
	CodeInactiveLink:    "This access link has been disabled.",
	CodeExpiredLink:     "This access link has expired.",
	CodeMaxUses:         "This access link has reached its usage limit.",
	CodeEmailRequired:   "An email address is required to redeem this link.",
	CodeLoginRequired:   "Please sign in to redeem this link.",
	CodePurchaseClosed:  "Your earlier purchase of this product was closed. Please contact support.",
	CodeRateLimited:     "Too many attempts. Try again in a few minutes.",
	CodeUnexpectedError: "Something went wrong. Please try again.",
}

func (c FailureCode) Message() string {
	if msg, ok := failureMessages[c]; ok {
		return msg
	}
	return failureMessages[CodeUnexpectedError]
}

// ConsumeError carries a validation failure out of the consume transaction.
type ConsumeError struct {
	Code FailureCode
}

func (e *ConsumeError) Error() string {
	return "consume access link: " + string(e.Code)
}

// FailureCodeOf extracts the failure code from err, or UNEXPECTED_ERROR.
func FailureCodeOf(err error) FailureCode {
	var ce *ConsumeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnexpectedError
}
