package repository

import (
	"context"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

// 監査ログの絞り込み。nil は条件なし。
// ResourceID は ResourceType と組み合わせたときだけ効く。
type AuditLogFilter struct {
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	Action       *model.AuditAction
	ActorUserID  *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 監査ログは追記のみ
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
