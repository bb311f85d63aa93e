package repository

import (
	"context"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"gorm.io/gorm"
)

type PromotionGormRepository struct {
	db *gorm.DB
}

func NewPromotionGormRepository(db *gorm.DB) *PromotionGormRepository {
	return &PromotionGormRepository{db: db}
}

// コードは大文字小文字を区別しない
func (r *PromotionGormRepository) FindByCode(ctx context.Context, code string) (model.Promotion, error) {
	var p model.Promotion
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&p).Error
	if isNotFound(err) {
		return model.Promotion{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Promotion{}, err
	}
	return p, nil
}

func (r *PromotionGormRepository) FindByID(ctx context.Context, promotionID int64) (model.Promotion, error) {
	var p model.Promotion
	err := r.db.WithContext(ctx).Where("id = ?", promotionID).First(&p).Error
	if isNotFound(err) {
		return model.Promotion{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Promotion{}, err
	}
	return p, nil
}

// 上限に達していなければ +1（条件付きUPDATE）
func (r *PromotionGormRepository) Commit(ctx context.Context, promotionID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", promotionID).
		Update("used_count", gorm.Expr("used_count + ?", 1))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 0 のときは何もしない
func (r *PromotionGormRepository) Rollback(ctx context.Context, promotionID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Promotion{}).
		Where("id = ? AND used_count > 0", promotionID).
		Update("used_count", gorm.Expr("used_count - ?", 1))

	return res.Error
}
