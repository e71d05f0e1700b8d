package repository

import (
	"content-storefront/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository reads the creator models and media that purchases and
// grants unlock. Writes exist for seeding; the admin CRUD lives elsewhere.
type CatalogRepository interface {
	UpsertModel(ctx context.Context, m *model.CreatorModel) error
	FindModel(ctx context.Context, modelID string) (*model.CreatorModel, error)
	CreateMedia(ctx context.Context, media *model.Media) error
	FindMediaByModel(ctx context.Context, modelID string) ([]*model.Media, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

func (r *catalogRepoImpl) UpsertModel(ctx context.Context, m *model.CreatorModel) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       m.Name,
			"updated_at": time.Now(),
		}),
	}).Create(m).Error
}

func (r *catalogRepoImpl) FindModel(ctx context.Context, modelID string) (*model.CreatorModel, error) {
	var m model.CreatorModel
	err := r.db.WithContext(ctx).
		Where("id = ?", modelID).
		First(&m).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrModelNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *catalogRepoImpl) CreateMedia(ctx context.Context, media *model.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *catalogRepoImpl) FindMediaByModel(ctx context.Context, modelID string) ([]*model.Media, error) {
	var media []*model.Media
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("created_at, id").
		Find(&media).Error

	if err != nil {
		return nil, err
	}

	return media, nil
}
