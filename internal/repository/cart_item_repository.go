package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

type CartItemRepository interface {
	// バリアント（＋商品）込みで取得
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一バリアントはプラス
	UpsertByCartAndVariant(ctx context.Context, cartID int64, variantID int64, addQty int64, unitPriceSnapshot int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
