package repository

import (
	"context"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	// 注文ID・氏名・電話・メールの部分一致
	Search string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// 明細・プロモーション込みで取得
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 行ロックして取得（明細は含まない）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, status string, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	// 注文行を丸ごと書き戻す（id / user_id / created_at は不変）
	Save(ctx context.Context, order model.Order) error
	Delete(ctx context.Context, orderID int64) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	//ステータスごとの件数
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)

	// 支払期限切れ（オンライン決済・未払い・未キャンセル）の注文ID
	ListExpiredUnpaidIDs(ctx context.Context, now time.Time, limit int) ([]int64, error)
	// 配送コードがあり終端でない注文ID
	ListSyncableIDs(ctx context.Context, limit int) ([]int64, error)
}
