package repository

import (
	"context"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
)

type ReturnListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
}

type ReturnRequestRepository interface {
	// 明細ごと作成
	Create(ctx context.Context, rr model.ReturnRequest) (int64, error)
	// 明細込みで取得
	FindByID(ctx context.Context, id int64) (model.ReturnRequest, error)
	// 行ロックして取得（明細込み）
	FindByIDForUpdate(ctx context.Context, id int64) (model.ReturnRequest, error)
	// 最新の申請（無ければ ErrNotFound）
	FindLatestByOrderID(ctx context.Context, orderID int64) (model.ReturnRequest, error)
	// rejected 以外の申請があるか
	ExistsActiveForOrder(ctx context.Context, orderID int64) (bool, error)
	List(ctx context.Context, f ReturnListFilter) ([]model.ReturnRequest, int64, error)
	// 申請行を書き戻す（明細は対象外）
	Save(ctx context.Context, rr model.ReturnRequest) error
}
