package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

// ユーザーの参照だけを約束（登録・ログインは認証サービス側）
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}
