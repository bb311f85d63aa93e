package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

// 在庫台帳。stock は Reserve / Restore / SetStock 以外で書き換えない。
type InventoryRepository interface {
	// 在庫の現在値を設定（管理者の棚卸し）
	SetStock(ctx context.Context, variantID int64, newStock int64) error

	// 在庫が足りるときだけ減算。足りなければ false
	Reserve(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・期限切れ・返品受領）
	Restore(ctx context.Context, variantID int64, qty int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
