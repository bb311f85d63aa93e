package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return err
	}
	return nil
}

// 新しい順。Limit/Offset の範囲チェックは usecase 側。
func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(auditLogFilter(f)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func auditLogFilter(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.ResourceType != nil {
			q = q.Where("resource_type = ?", *f.ResourceType)
			if f.ResourceID != nil {
				q = q.Where("resource_id = ?", *f.ResourceID)
			}
		}
		if f.Action != nil {
			q = q.Where("action = ?", *f.Action)
		}
		if f.ActorUserID != nil {
			q = q.Where("actor_user_id = ?", *f.ActorUserID)
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", *f.CreatedTo)
		}
		return q
	}
}
