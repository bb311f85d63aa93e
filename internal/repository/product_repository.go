package repository

import (
	"context"
	"errors"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品バリアントの参照だけを約束（カタログCRUDはこのサービスの外）。
type ProductRepository interface {
	// バリアント＋商品を取得
	FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
}
