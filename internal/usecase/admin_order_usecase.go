package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
)

type AdminOrderUsecase struct {
	tx repo.TransactionManager
	f  *Fulfillment
}

func NewAdminOrderUsecase(tx repo.TransactionManager, f *Fulfillment) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, f: f}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderListOutput struct {
	OrderListOutput
	// ステータスごとの件数（絞り込みとは無関係に全体）
	Stats map[model.OrderStatus]int64 `json:"stats"`
}

// 注文一覧＋ステータス別件数
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	if err := validatePaging(f.Page, f.Limit); err != nil {
		return AdminOrderListOutput{}, err
	}
	if f.Status != "" && !model.OrderStatus(f.Status).IsValid() {
		return AdminOrderListOutput{}, validationError("invalid status")
	}
	if len(f.Search) > 100 {
		return AdminOrderListOutput{}, validationError("search too long")
	}

	var out AdminOrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError()
		}
		stats, err := r.Orders().CountByStatus(ctx)
		if err != nil {
			return dbError()
		}
		out = AdminOrderListOutput{
			OrderListOutput: OrderListOutput{Items: toOrderOutputs(orders), Total: total, Page: f.Page, Limit: f.Limit},
			Stats:           stats,
		}
		return nil
	})
	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) Detail(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		out = toOrderOutput(o)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ステータス更新。cancelled は補償処理を通す。返品系は返品ワークフローからのみ。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.IsValid() {
		return OrderOutput{}, validationError("invalid status")
	}
	if newStatus == model.OrderStatusReturning || newStatus == model.OrderStatusReturned {
		return OrderOutput{}, invalidState("returns are handled through return requests")
	}

	var (
		out     model.Order
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}

		// すでに同じなら何もしない
		if o.OrderStatus == newStatus {
			out = o
			return nil
		}
		if !model.CanTransition(o.OrderStatus, newStatus) {
			return invalidState(fmt.Sprintf("cannot change order from %s to %s", o.OrderStatus, newStatus))
		}

		before := o.OrderStatus
		switch newStatus {
		case model.OrderStatusCancelled:
			if err := u.f.compensate(ctx, r, &o, false); err != nil {
				return err
			}
		case model.OrderStatusDelivered:
			now := u.f.clock.Now()
			o.OrderStatus = newStatus
			if o.DeliveredAt == nil {
				o.DeliveredAt = &now
			}
			settleCOD(&o, now)
			if err := r.Orders().Save(ctx, o); err != nil {
				return dbError()
			}
		default:
			o.OrderStatus = newStatus
			if err := r.Orders().Save(ctx, o); err != nil {
				return dbError()
			}
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if err := u.f.audit().write(ctx, r, actorAdminUserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			map[string]any{"order_status": before},
			map[string]any{"order_status": newStatus},
		); err != nil {
			return err
		}

		out, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError()
		}
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed {
		typ := EventOrderStatusChanged
		if newStatus == model.OrderStatusCancelled {
			typ = EventOrderCancelled
		}
		u.f.events.order(ctx, typ, out)
	}
	return toOrderOutput(out), nil
}

// 管理者キャンセル（所有チェックなし。条件は利用者と同じ）
func (u *AdminOrderUsecase) Cancel(ctx context.Context, actorAdminUserID int64, orderID int64) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.f.cancelInTx(ctx, r, orderID, nil)
		if err != nil {
			return err
		}
		if err := u.f.audit().write(ctx, r, actorAdminUserID, model.AuditActionCancelOrder, model.AuditResourceOrder, orderID,
			nil, map[string]any{"order_status": o.OrderStatus},
		); err != nil {
			return err
		}
		out, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.f.events.order(ctx, EventOrderCancelled, out)
	return toOrderOutput(out), nil
}

// 削除は終わった注文（cancelled / delivered / returned）だけ
func (u *AdminOrderUsecase) Delete(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return validationError("invalid id")
	}

	var deleted model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		if !o.OrderStatus.IsTerminal() {
			return invalidState(fmt.Sprintf("order in status %s cannot be deleted", o.OrderStatus))
		}

		if err := r.Orders().Delete(ctx, orderID); err != nil {
			if err == repo.ErrNotFound {
				return notFoundError("order not found")
			}
			return dbError()
		}

		if err := u.f.audit().write(ctx, r, actorAdminUserID, model.AuditActionDeleteOrder, model.AuditResourceOrder, orderID,
			map[string]any{"order_status": o.OrderStatus, "total_money": o.TotalMoney},
			nil,
		); err != nil {
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return err
	}

	u.f.events.order(ctx, EventOrderDeleted, deleted)
	return nil
}
