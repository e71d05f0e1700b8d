package model

import "time"

type CreatorModel struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CreatorModel) TableName() string { return "creator_models" }

type Product struct {
	ID               string        `gorm:"primaryKey;size:64;not null"`
	ModelID          string        `gorm:"size:36;index;not null"`
	Name             string        `gorm:"size:128;not null"`
	PriceCents       int64         `gorm:"not null"`
	IsBaseMembership bool          `gorm:"not null"` // at most one per model, enforced by the admin write path
	Status           ProductStatus `gorm:"size:16;index;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Media struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	ModelID   string `gorm:"size:36;index;not null"`
	Title     string `gorm:"size:255"`
	IsFree    bool   `gorm:"not null"`
	CreatedAt time.Time
}

func (Media) TableName() string { return "media" }

// Purchase is the ledger row for one (user, product) pair. The pair is the
// natural key: checkout upserts into it, the webhook transitions it.
type Purchase struct {
	ID                  string         `gorm:"primaryKey;size:36;not null"`
	UserID              string         `gorm:"size:64;not null;uniqueIndex:ux_purchases_user_product,priority:1"`
	ProductID           string         `gorm:"size:64;not null;uniqueIndex:ux_purchases_user_product,priority:2;index"`
	Status              PurchaseStatus `gorm:"size:16;index;not null"`
	AmountCents         int64          `gorm:"not null"`
	PaymentProvider     string         `gorm:"size:32;not null"`
	PaymentID           *string        `gorm:"size:64;index"`
	PaymentProviderData string         `gorm:"type:text"` // opaque provider payload, last write wins
	CreatedAt           time.Time
	UpdatedAt           time.Time
	PaidAt              *time.Time
}

// AccessLink is a shareable grant. Only the sha256 fingerprint of the raw
// token is stored.
type AccessLink struct {
	ID                 string     `gorm:"primaryKey;size:36;not null"`
	TokenFingerprint   string     `gorm:"size:64;uniqueIndex;not null"`
	Scope              Scope      `gorm:"size:16;not null"`
	LinkType           LinkType   `gorm:"size:16;not null"`
	ModelID            *string    `gorm:"size:36;index"`
	ProductID          *string    `gorm:"size:64;index"`
	Label              string     `gorm:"size:255"`
	ExpiresAt          *time.Time
	MaxUses            *int       // nil means unlimited
	Uses               int        `gorm:"not null"`
	Active             bool       `gorm:"not null"`
	CreatedBy          string     `gorm:"size:64"`
	FirstUsedAt        *time.Time
	LastUsedAt         *time.Time
	LastValidatorName  *string    `gorm:"size:128"`
	LastValidatorEmail *string    `gorm:"size:255"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AccessLinkVisit is append-only; the core never updates or deletes it.
type AccessLinkVisit struct {
	ID           uint      `gorm:"primaryKey"`
	LinkID       string    `gorm:"size:36;index;not null"`
	VisitedAt    time.Time `gorm:"index;not null"`
	VisitorName  *string   `gorm:"size:128"`
	VisitorEmail *string   `gorm:"size:255"`
	UserID       *string   `gorm:"size:64;index"`
	UserAgent    string    `gorm:"size:512"`
	IP           string    `gorm:"size:45"`
	Outcome      string    `gorm:"size:32;not null"` // "OK" or a failure code
}

// WebhookEvent records every provider notification and what reconciliation
// did with it. It is an audit trail, not a dedup table.
type WebhookEvent struct {
	ID              uint   `gorm:"primaryKey"`
	Provider        string `gorm:"size:32;index;not null"`
	PaymentID       string `gorm:"size:64;index"`
	Action          string `gorm:"size:64"`
	Outcome         string `gorm:"size:32;index;not null"`
	ProcessingError string `gorm:"type:text"`
	ReceivedAt      time.Time
	CreatedAt       time.Time
}

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&CreatorModel{},
		&Product{},
		&Media{},
		&Purchase{},
		&AccessLink{},
		&AccessLinkVisit{},
		&WebhookEvent{},
	}
}
