package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (model.Promotion, error)
	FindByID(ctx context.Context, promotionID int64) (model.Promotion, error)

	// used_count を +1。usage_limit に達していたら false
	Commit(ctx context.Context, promotionID int64) (bool, error)

	// used_count を -1（0 未満にはしない）
	Rollback(ctx context.Context, promotionID int64) error
}
