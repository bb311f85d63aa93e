package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
)

// 監査ログの書き込み。before / after は JSON 文字列で保存する。
type auditor struct {
	clock Clock
	log   *zap.Logger
}

func (f *Fulfillment) audit() auditor {
	return auditor{clock: f.clock, log: f.log}
}

func (a auditor) write(ctx context.Context, r repo.TxRepos, actor int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before, after any) error {
	entry := model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   a.toJSON(before),
		AfterJSON:    a.toJSON(after),
		CreatedAt:    a.clock.Now(),
	}
	if err := r.AuditLogs().Create(ctx, entry); err != nil {
		return dbError()
	}
	return nil
}

func (a auditor) toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		a.log.Warn("audit json marshal failed", zap.Error(err))
		return ""
	}
	return string(b)
}

// 管理者向けの監査ログ参照
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogListInput struct {
	ResourceType string
	ResourceID   int64
	Action       string
	ActorUserID  int64
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// List は新しい順。resource_id は resource_type と一緒に指定する。
func (u *AuditLogUsecase) List(ctx context.Context, in AuditLogListInput) (AuditLogListOutput, error) {
	if err := validatePaging(in.Page, in.Limit); err != nil {
		return AuditLogListOutput{}, err
	}

	f := repo.AuditLogFilter{
		Limit:       in.Limit,
		Offset:      (in.Page - 1) * in.Limit,
		CreatedFrom: in.From,
		CreatedTo:   in.To,
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return AuditLogListOutput{}, validationError("from must be before to")
	}

	if in.ResourceType != "" {
		rt := model.AuditResourceType(in.ResourceType)
		if !rt.IsValid() {
			return AuditLogListOutput{}, validationError("invalid resource_type")
		}
		f.ResourceType = &rt
	}
	if in.ResourceID < 0 {
		return AuditLogListOutput{}, validationError("invalid resource_id")
	}
	if in.ResourceID > 0 {
		if f.ResourceType == nil {
			return AuditLogListOutput{}, validationError("resource_type required with resource_id")
		}
		id := in.ResourceID
		f.ResourceID = &id
	}
	if in.Action != "" {
		act := model.AuditAction(in.Action)
		if !act.IsValid() {
			return AuditLogListOutput{}, validationError("invalid action")
		}
		f.Action = &act
	}
	if in.ActorUserID < 0 {
		return AuditLogListOutput{}, validationError("invalid actor_user_id")
	}
	if in.ActorUserID > 0 {
		actor := in.ActorUserID
		f.ActorUserID = &actor
	}

	items, err := u.logs.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, dbError()
	}
	if items == nil {
		items = []model.AuditLog{}
	}
	return AuditLogListOutput{Items: items, Page: in.Page, Limit: in.Limit}, nil
}
