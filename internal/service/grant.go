package service

import (
	"content-storefront/internal/events"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"content-storefront/internal/token"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Requester is whoever presents the token. Empty fields are treated as absent.
type Requester struct {
	Name   string
	Email  string
	UserID string
}

type VisitMeta struct {
	UserAgent string
	IP        string
}

type ConsumeInput struct {
	Token     string
	Requester Requester
	Meta      VisitMeta
}

type IssueLinkInput struct {
	Scope     model.Scope
	LinkType  model.LinkType
	ModelID   string
	ProductID string
	Label     string
	ExpiresAt *time.Time
	MaxUses   *int
	CreatedBy string
}

// IssuedLink is the only place the raw token ever appears.
type IssuedLink struct {
	Link  *model.AccessLink
	Token string
	URL   string
}

type GrantService interface {
	IssueLink(ctx context.Context, in IssueLinkInput) (*IssuedLink, error)
	Consume(ctx context.Context, in ConsumeInput) (*model.ResolvedGrant, error)
	ListLinks(ctx context.Context, filter repository.LinkFilter) ([]*model.AccessLink, error)
	DisableLink(ctx context.Context, linkID string) error
	ListVisits(ctx context.Context, linkID string, limit int) ([]*model.AccessLinkVisit, error)
}

type grantServiceImpl struct {
	db            *gorm.DB
	publicBaseURL string
	linkRepo      repository.AccessLinkRepository
	productRepo   repository.ProductRepository
	catalogRepo   repository.CatalogRepository
	purchaseRepo  repository.PurchaseRepository
	visitRepo     repository.VisitRepository
	visits        VisitRecorder
	publisher     events.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewGrantService(
	db *gorm.DB,
	publicBaseURL string,
	linkRepo repository.AccessLinkRepository,
	productRepo repository.ProductRepository,
	catalogRepo repository.CatalogRepository,
	purchaseRepo repository.PurchaseRepository,
	visitRepo repository.VisitRepository,
	visits VisitRecorder,
	publisher events.Publisher,
	logger *zap.Logger,
) GrantService {
	return &grantServiceImpl{
		db:            db,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		linkRepo:      linkRepo,
		productRepo:   productRepo,
		catalogRepo:   catalogRepo,
		purchaseRepo:  purchaseRepo,
		visitRepo:     visitRepo,
		visits:        visits,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *grantServiceImpl) IssueLink(ctx context.Context, in IssueLinkInput) (*IssuedLink, error) {
	link := &model.AccessLink{
		ID:        uuid.NewString(),
		Scope:     in.Scope,
		LinkType:  in.LinkType,
		ModelID:   optional(in.ModelID),
		ProductID: optional(in.ProductID),
		Label:     in.Label,
		ExpiresAt: in.ExpiresAt,
		MaxUses:   in.MaxUses,
		Active:    true,
		CreatedBy: in.CreatedBy,
	}
	if link.ExpiresAt != nil {
		utc := link.ExpiresAt.UTC()
		link.ExpiresAt = &utc
	}
	if err := link.Validate(); err != nil {
		return nil, err
	}

	if link.ModelID != nil {
		if _, err := s.catalogRepo.FindModel(ctx, *link.ModelID); err != nil {
			return nil, err
		}
		if link.LinkType == model.LinkTypeGrant {
			// a model grant resolves to the base membership on consume
			if _, err := s.productRepo.FindBaseMembership(ctx, nil, *link.ModelID); err != nil {
				return nil, err
			}
		}
	}
	if link.ProductID != nil {
		if _, err := s.productRepo.FindByID(ctx, nil, *link.ProductID); err != nil {
			return nil, err
		}
	}

	raw, err := token.Generate()
	if err != nil {
		return nil, err
	}
	link.TokenFingerprint = token.Fingerprint(raw)

	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("store access link: %w", err)
	}

	s.logger.Info("access link issued",
		zap.String("link_id", link.ID),
		zap.String("scope", string(link.Scope)),
		zap.String("link_type", string(link.LinkType)),
		zap.String("created_by", link.CreatedBy),
	)

	return &IssuedLink{
		Link:  link,
		Token: raw,
		URL:   s.publicBaseURL + "/access/" + url.PathEscape(raw),
	}, nil
}

// checkLink runs the ordered validation. The first failing check wins.
func checkLink(link *model.AccessLink, req Requester, now time.Time) model.FailureCode {
	switch {
	case !link.Active:
		return model.CodeInactiveLink
	case link.ExpiresAt != nil && !link.ExpiresAt.After(now):
		return model.CodeExpiredLink
	case link.MaxUses != nil && link.Uses >= *link.MaxUses:
		return model.CodeMaxUses
	case link.LinkType == model.LinkTypeGrant && optional(req.Email) == nil:
		return model.CodeEmailRequired
	case link.LinkType == model.LinkTypeGrant && optional(req.UserID) == nil:
		return model.CodeLoginRequired
	}
	return ""
}

func (s *grantServiceImpl) Consume(ctx context.Context, in ConsumeInput) (*model.ResolvedGrant, error) {
	if strings.TrimSpace(in.Token) == "" {
		return nil, &model.ConsumeError{Code: model.CodeInvalidLink}
	}

	fingerprint := token.Fingerprint(in.Token)
	now := s.now().UTC()

	var (
		linkID string
		grant  *model.ResolvedGrant
		paid   *events.PurchasePaidEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.linkRepo.FindByFingerprint(ctx, tx, fingerprint)
		if err != nil {
			if errors.Is(err, model.ErrLinkNotFound) {
				return &model.ConsumeError{Code: model.CodeInvalidLink}
			}
			return fmt.Errorf("find access link: %w", err)
		}
		linkID = link.ID

		if code := checkLink(link, in.Requester, now); code != "" {
			return &model.ConsumeError{Code: code}
		}

		validator := repository.Validator{
			Name:  optional(in.Requester.Name),
			Email: optional(in.Requester.Email),
		}
		ok, err := s.linkRepo.IncrementUses(ctx, tx, link.ID, validator, now)
		if err != nil {
			return fmt.Errorf("increment link uses: %w", err)
		}
		if !ok {
			// Lost a race against another redemption or an admin disable.
			current, err := s.linkRepo.FindByFingerprint(ctx, tx, fingerprint)
			if err != nil {
				return fmt.Errorf("reload access link: %w", err)
			}
			code := checkLink(current, in.Requester, now)
			if code == "" {
				code = model.CodeMaxUses
			}
			return &model.ConsumeError{Code: code}
		}

		if link.LinkType == model.LinkTypeGrant {
			userID := *optional(in.Requester.UserID)
			productID, err := s.resolveGrantProduct(ctx, tx, link)
			if err != nil {
				return err
			}
			changed, err := s.purchaseRepo.UpsertPaid(ctx, tx, userID, productID, 0, model.PaymentProviderGrantLink, now)
			if errors.Is(err, model.ErrPurchaseNotPending) {
				// expired and refunded rows are final; the use is rolled back
				return &model.ConsumeError{Code: model.CodePurchaseClosed}
			}
			if err != nil {
				return fmt.Errorf("record granted purchase: %w", err)
			}
			if changed {
				paid = &events.PurchasePaidEvent{
					UserID:          userID,
					ProductID:       productID,
					PaymentProvider: model.PaymentProviderGrantLink,
					PaidAt:          now,
				}
			}
		}

		grant = &model.ResolvedGrant{
			LinkID:    link.ID,
			Scope:     link.Scope,
			LinkType:  link.LinkType,
			ModelID:   link.ModelID,
			ProductID: link.ProductID,
			ExpiresAt: link.ExpiresAt,
		}
		return nil
	})

	if linkID != "" {
		s.recordVisit(linkID, in, now, err)
	}

	if err != nil {
		code := model.FailureCodeOf(err)
		if code == model.CodeUnexpectedError {
			s.logger.Error("consume access link failed", zap.String("link_id", linkID), zap.Error(err))
		}
		return nil, err
	}

	if paid != nil {
		if err := events.PublishPurchasePaid(ctx, s.publisher, *paid); err != nil {
			s.logger.Warn("publish purchase paid event",
				zap.String("user_id", paid.UserID),
				zap.String("product_id", paid.ProductID),
				zap.Error(err),
			)
		}
	}

	return grant, nil
}

// resolveGrantProduct picks the product a grant link unlocks permanently.
// Model grants resolve to the model's base membership; a model without one
// is an integrity failure and rolls the redemption back.
func (s *grantServiceImpl) resolveGrantProduct(ctx context.Context, tx *gorm.DB, link *model.AccessLink) (string, error) {
	switch link.Scope {
	case model.ScopeProduct:
		return *link.ProductID, nil
	case model.ScopeModel:
		product, err := s.productRepo.FindBaseMembership(ctx, tx, *link.ModelID)
		if err != nil {
			return "", fmt.Errorf("resolve base membership for model %s: %w", *link.ModelID, err)
		}
		return product.ID, nil
	}
	return "", fmt.Errorf("grant link %s: %w", link.ID, model.ErrGlobalGrant)
}

func (s *grantServiceImpl) recordVisit(linkID string, in ConsumeInput, now time.Time, err error) {
	outcome := "OK"
	if err != nil {
		outcome = string(model.FailureCodeOf(err))
	}
	s.visits.Record(&model.AccessLinkVisit{
		LinkID:       linkID,
		VisitedAt:    now,
		VisitorName:  optional(in.Requester.Name),
		VisitorEmail: optional(in.Requester.Email),
		UserID:       optional(in.Requester.UserID),
		UserAgent:    truncate(in.Meta.UserAgent, 512),
		IP:           truncate(in.Meta.IP, 45),
		Outcome:      outcome,
	})
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *grantServiceImpl) ListLinks(ctx context.Context, filter repository.LinkFilter) ([]*model.AccessLink, error) {
	return s.linkRepo.List(ctx, filter)
}

func (s *grantServiceImpl) DisableLink(ctx context.Context, linkID string) error {
	if err := s.linkRepo.SetActive(ctx, linkID, false); err != nil {
		return err
	}
	s.logger.Info("access link disabled", zap.String("link_id", linkID))
	return nil
}

func (s *grantServiceImpl) ListVisits(ctx context.Context, linkID string, limit int) ([]*model.AccessLinkVisit, error) {
	if _, err := s.linkRepo.FindByID(ctx, linkID); err != nil {
		return nil, err
	}
	return s.visitRepo.ListByLink(ctx, linkID, limit)
}
