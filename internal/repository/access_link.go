package repository

import (
	"content-storefront/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Validator identifies who redeemed a link, for the denormalized audit fields.
type Validator struct {
	Name  *string
	Email *string
}

type LinkFilter struct {
	ActiveOnly bool
	ModelID    string
	Limit      int
}

type AccessLinkRepository interface {
	Create(ctx context.Context, link *model.AccessLink) error
	FindByID(ctx context.Context, linkID string) (*model.AccessLink, error)
	FindByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*model.AccessLink, error)
	List(ctx context.Context, filter LinkFilter) ([]*model.AccessLink, error)
	SetActive(ctx context.Context, linkID string, active bool) error

	// IncrementUses is the compare-and-swap half of consumption: it bumps the
	// counter only while the link is active and under its cap, and reports
	// whether it did.
	IncrementUses(ctx context.Context, tx *gorm.DB, linkID string, validator Validator, now time.Time) (bool, error)
}

type accessLinkRepoImpl struct {
	db *gorm.DB
}

func NewAccessLinkRepository(db *gorm.DB) AccessLinkRepository {
	return &accessLinkRepoImpl{
		db: db,
	}
}

func (r *accessLinkRepoImpl) Create(ctx context.Context, link *model.AccessLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *accessLinkRepoImpl) FindByID(ctx context.Context, linkID string) (*model.AccessLink, error) {
	var link model.AccessLink
	err := r.db.WithContext(ctx).
		Where("id = ?", linkID).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrLinkNotFound
		}
		return nil, err
	}

	return &link, nil
}

func (r *accessLinkRepoImpl) FindByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*model.AccessLink, error) {
	var link model.AccessLink
	err := conn(r.db, tx).WithContext(ctx).
		Where("token_fingerprint = ?", fingerprint).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrLinkNotFound
		}
		return nil, err
	}

	return &link, nil
}

func (r *accessLinkRepoImpl) List(ctx context.Context, filter LinkFilter) ([]*model.AccessLink, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if filter.ModelID != "" {
		q = q.Where("model_id = ?", filter.ModelID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var links []*model.AccessLink
	if err := q.Find(&links).Error; err != nil {
		return nil, err
	}

	return links, nil
}

func (r *accessLinkRepoImpl) SetActive(ctx context.Context, linkID string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.AccessLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"active":     active,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return model.ErrLinkNotFound
	}

	return nil
}

func (r *accessLinkRepoImpl) IncrementUses(ctx context.Context, tx *gorm.DB, linkID string, validator Validator, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"uses":          gorm.Expr("uses + 1"),
		"first_used_at": gorm.Expr("COALESCE(first_used_at, ?)", now),
		"last_used_at":  now,
		"updated_at":    now,
	}
	if validator.Name != nil {
		updates["last_validator_name"] = *validator.Name
	}
	if validator.Email != nil {
		updates["last_validator_email"] = *validator.Email
	}

	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.AccessLink{}).
		Where("id = ? AND active = ?", linkID, true).
		Where("(max_uses IS NULL OR uses < max_uses)").
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
