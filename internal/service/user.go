package service

import (
	"content-storefront/internal/access"
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"context"
	"time"
)

type MediaAccess struct {
	MediaID string
	Title   string
	Verdict access.Verdict
}

type UserService interface {
	GetPurchases(ctx context.Context, userID string) ([]*model.Purchase, error)
	// EvaluateModel returns a verdict for every media item of the model. The
	// grant is the one the client holds; an expired grant is ignored.
	EvaluateModel(ctx context.Context, userID, modelID string, grant *model.ResolvedGrant) ([]*MediaAccess, error)
}

type userServiceImpl struct {
	catalogRepo  repository.CatalogRepository
	productRepo  repository.ProductRepository
	purchaseRepo repository.PurchaseRepository
	now          func() time.Time
}

func NewUserService(
	catalogRepo repository.CatalogRepository,
	productRepo repository.ProductRepository,
	purchaseRepo repository.PurchaseRepository,
) UserService {
	return &userServiceImpl{
		catalogRepo:  catalogRepo,
		productRepo:  productRepo,
		purchaseRepo: purchaseRepo,
		now:          time.Now,
	}
}

func (s *userServiceImpl) GetPurchases(ctx context.Context, userID string) ([]*model.Purchase, error) {
	return s.purchaseRepo.ListByUser(ctx, userID)
}

func (s *userServiceImpl) EvaluateModel(ctx context.Context, userID, modelID string, grant *model.ResolvedGrant) ([]*MediaAccess, error) {
	if _, err := s.catalogRepo.FindModel(ctx, modelID); err != nil {
		return nil, err
	}

	media, err := s.catalogRepo.FindMediaByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.FindByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	var purchases []*model.Purchase
	if userID != "" {
		purchases, err = s.purchaseRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if grantExpired(grant, s.now()) {
		grant = nil
	}

	result := make([]*MediaAccess, 0, len(media))
	for _, m := range media {
		result = append(result, &MediaAccess{
			MediaID: m.ID,
			Title:   m.Title,
			Verdict: access.Evaluate(m, purchases, products, grant),
		})
	}

	return result, nil
}

func grantExpired(grant *model.ResolvedGrant, now time.Time) bool {
	if grant == nil {
		return false
	}
	if grant.ExpiresAt != nil && !grant.ExpiresAt.After(now) {
		return true
	}
	return grant.LocalExpiresAt != nil && !grant.LocalExpiresAt.After(now)
}
