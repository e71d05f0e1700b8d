package repository

import (
	"content-storefront/internal/model"
	"context"

	"gorm.io/gorm"
)

type VisitRepository interface {
	Create(ctx context.Context, visit *model.AccessLinkVisit) error
	ListByLink(ctx context.Context, linkID string, limit int) ([]*model.AccessLinkVisit, error)
}

type visitRepoImpl struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepoImpl{db: db}
}

func (r *visitRepoImpl) Create(ctx context.Context, visit *model.AccessLinkVisit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

func (r *visitRepoImpl) ListByLink(ctx context.Context, linkID string, limit int) ([]*model.AccessLinkVisit, error) {
	q := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("visited_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var visits []*model.AccessLinkVisit
	if err := q.Find(&visits).Error; err != nil {
		return nil, err
	}

	return visits, nil
}
