package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
)

// 管理者による在庫の手動設定
type InventoryUsecase struct {
	tx    repo.TransactionManager
	audit auditor
}

func NewInventoryUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger) *InventoryUsecase {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryUsecase{tx: tx, audit: auditor{clock: clock, log: log}}
}

type SetStockOutput struct {
	ProductVariantID int64 `json:"product_variant_id"`
	Before           int64 `json:"before"`
	Stock            int64 `json:"stock"`
}

// SetStock は在庫の現在値を設定し、差分を調整履歴と監査ログに残す。
func (u *InventoryUsecase) SetStock(ctx context.Context, adminUserID int64, variantID int64, newStock int64, reason string) (SetStockOutput, error) {
	if adminUserID <= 0 {
		return SetStockOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return SetStockOutput{}, validationError("invalid variant id")
	}
	if newStock < 0 {
		return SetStockOutput{}, validationError("stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return SetStockOutput{}, validationError("reason required")
	}

	var out SetStockOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		v, err := r.Products().FindVariantByID(ctx, variantID)
		if err == repo.ErrNotFound {
			return notFoundError("product variant not found")
		}
		if err != nil {
			return dbError()
		}

		if err := r.Inventory().SetStock(ctx, variantID, newStock); err != nil {
			if err == repo.ErrNotFound {
				return notFoundError("product variant not found")
			}
			return dbError()
		}

		now := u.audit.clock.Now()
		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductVariantID: variantID,
			ActorUserID:      adminUserID,
			Delta:            newStock - v.Stock,
			Reason:           strings.TrimSpace(reason),
			CreatedAt:        now,
		}); err != nil {
			return dbError()
		}

		//監査ログ（在庫更新）
		if err := u.audit.write(ctx, r, adminUserID, model.AuditActionUpdateStock, model.AuditResourceVariant, variantID,
			map[string]any{"stock": v.Stock},
			map[string]any{"stock": newStock},
		); err != nil {
			return err
		}

		out = SetStockOutput{ProductVariantID: variantID, Before: v.Stock, Stock: newStock}
		return nil
	})
	if err != nil {
		return SetStockOutput{}, err
	}
	return out, nil
}
