package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
)

// 配達から返品申請できるまでの期間
const ReturnWindow = 7 * 24 * time.Hour

// 返品申請入力の検証（実装は validator パッケージ）
type ReturnValidator interface {
	ValidateCreateReturn(ctx context.Context, in CreateReturnInput) error
}

type ReturnUsecase struct {
	tx        repo.TransactionManager
	f         *Fulfillment
	validator ReturnValidator
}

func NewReturnUsecase(tx repo.TransactionManager, f *Fulfillment, validator ReturnValidator) *ReturnUsecase {
	return &ReturnUsecase{tx: tx, f: f, validator: validator}
}

type ReturnItemInput struct {
	OrderItemID int64 `json:"order_item_id"`
	Quantity    int64 `json:"quantity"`
}

type CreateReturnInput struct {
	OrderID           int64
	ReturnType        string
	Reason            string
	CustomNote        string
	BankName          string
	BankAccountNumber string
	BankAccountName   string
	Items             []ReturnItemInput
}

type ReturnListOutput struct {
	Items []model.ReturnRequest `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type ReturnCheckOutput struct {
	CanReturn bool       `json:"can_return"`
	Reason    string     `json:"reason,omitempty"`
	Deadline  *time.Time `json:"deadline"`
	// rejected 以外の申請がある
	HasReturnRequest bool `json:"has_return_request"`
}

// 返品できない理由（できるなら空）
func returnBlocker(o model.Order, now time.Time) string {
	if o.OrderStatus != model.OrderStatusDelivered {
		return "order has not been delivered"
	}
	if o.DeliveredAt == nil {
		return "delivery time unknown"
	}
	if now.After(o.DeliveredAt.Add(ReturnWindow)) {
		return "return window has passed"
	}
	return ""
}

// 返金見込み額。全返品は送料の実負担を足してプロモーション値引きを引く。
func estimateRefund(o model.Order, lines []model.ReturnRequestItem, full bool) int64 {
	var amount int64
	for _, l := range lines {
		amount += l.RefundAmount
	}
	if full {
		amount += o.NetShippingFee()
		amount -= o.PromotionDiscount
	}
	return clampRefund(o, amount)
}

// [0, total_money - refunded_amount]
func clampRefund(o model.Order, amount int64) int64 {
	refundable := o.TotalMoney - o.RefundedAmount
	if amount > refundable {
		amount = refundable
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

func (u *ReturnUsecase) Create(ctx context.Context, userID int64, in CreateReturnInput) (model.ReturnRequest, error) {
	if userID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidateCreateReturn(ctx, in); err != nil {
		return model.ReturnRequest{}, validationError(err.Error())
	}

	var out model.ReturnRequest
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		if o.UserID != userID {
			return notFoundError("order not found")
		}
		if reason := returnBlocker(o, u.f.clock.Now()); reason != "" {
			return invalidState(reason)
		}

		active, err := r.Returns().ExistsActiveForOrder(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		if active {
			return invalidState("order already has a return request")
		}

		orderItems, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		byID := make(map[int64]model.OrderItem, len(orderItems))
		for _, it := range orderItems {
			byID[it.ID] = it
		}

		lines := make([]model.ReturnRequestItem, 0, len(in.Items))
		for _, it := range in.Items {
			oi, ok := byID[it.OrderItemID]
			if !ok {
				return validationError(fmt.Sprintf("order item %d does not belong to this order", it.OrderItemID))
			}
			if it.Quantity > oi.Quantity {
				return validationError(fmt.Sprintf("return quantity for %s exceeds ordered quantity", oi.ProductName))
			}
			lines = append(lines, model.ReturnRequestItem{
				OrderItemID:      oi.ID,
				ProductVariantID: oi.ProductVariantID,
				OrderedQuantity:  oi.Quantity,
				ReturnQuantity:   it.Quantity,
				UnitPrice:        oi.UnitPrice,
				RefundAmount:     oi.UnitPrice * it.Quantity,
			})
		}

		full := model.ReturnType(in.ReturnType) == model.ReturnTypeFull
		if full {
			if len(lines) != len(orderItems) {
				return validationError("full return must include every item")
			}
			for _, l := range lines {
				if l.ReturnQuantity != l.OrderedQuantity {
					return validationError("full return must include the full quantity of every item")
				}
			}
		}

		rr := model.ReturnRequest{
			OrderID:           o.ID,
			UserID:            userID,
			ReturnType:        model.ReturnType(in.ReturnType),
			Reason:            strings.TrimSpace(in.Reason),
			CustomNote:        in.CustomNote,
			Status:            model.ReturnStatusPending,
			RefundAmount:      estimateRefund(o, lines, full),
			RefundStatus:      model.RefundStatusPending,
			BankName:          strings.TrimSpace(in.BankName),
			BankAccountNumber: strings.TrimSpace(in.BankAccountNumber),
			BankAccountName:   strings.TrimSpace(in.BankAccountName),
			Items:             lines,
		}
		id, err := r.Returns().Create(ctx, rr)
		if err != nil {
			return dbError()
		}
		out, err = r.Returns().FindByID(ctx, id)
		if err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	u.f.events.returnRequest(ctx, out)
	return out, nil
}

// 返品できるかどうか（画面のボタン表示用）
func (u *ReturnUsecase) Check(ctx context.Context, userID int64, orderID int64) (ReturnCheckOutput, error) {
	if userID <= 0 {
		return ReturnCheckOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return ReturnCheckOutput{}, validationError("invalid order id")
	}

	var out ReturnCheckOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		if o.UserID != userID {
			return notFoundError("order not found")
		}

		if o.DeliveredAt != nil {
			d := o.DeliveredAt.Add(ReturnWindow)
			out.Deadline = &d
		}
		active, err := r.Returns().ExistsActiveForOrder(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		out.HasReturnRequest = active

		out.Reason = returnBlocker(o, u.f.clock.Now())
		if out.Reason == "" && active {
			out.Reason = "order already has a return request"
		}
		out.CanReturn = out.Reason == ""
		return nil
	})
	if err != nil {
		return ReturnCheckOutput{}, err
	}
	return out, nil
}

func (u *ReturnUsecase) ListMine(ctx context.Context, userID int64, page, limit int) (ReturnListOutput, error) {
	if userID <= 0 {
		return ReturnListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.list(ctx, repo.ReturnListFilter{Page: page, Limit: limit, UserID: &userID})
}

func (u *ReturnUsecase) GetMine(ctx context.Context, userID int64, id int64) (model.ReturnRequest, error) {
	if userID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	rr, err := u.AdminGet(ctx, id)
	if err != nil {
		return model.ReturnRequest{}, err
	}
	if rr.UserID != userID {
		return model.ReturnRequest{}, notFoundError("return request not found")
	}
	return rr, nil
}

func (u *ReturnUsecase) AdminList(ctx context.Context, status string, page, limit int) (ReturnListOutput, error) {
	if status != "" && status != "all" {
		switch model.ReturnStatus(status) {
		case model.ReturnStatusPending, model.ReturnStatusApproved, model.ReturnStatusRejected,
			model.ReturnStatusReceived, model.ReturnStatusRefunded:
		default:
			return ReturnListOutput{}, validationError("invalid status")
		}
	} else {
		status = ""
	}
	return u.list(ctx, repo.ReturnListFilter{Page: page, Limit: limit, Status: status})
}

func (u *ReturnUsecase) list(ctx context.Context, f repo.ReturnListFilter) (ReturnListOutput, error) {
	if err := validatePaging(f.Page, f.Limit); err != nil {
		return ReturnListOutput{}, err
	}

	var out ReturnListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Returns().List(ctx, f)
		if err != nil {
			return dbError()
		}
		out = ReturnListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return ReturnListOutput{}, err
	}
	return out, nil
}

func (u *ReturnUsecase) AdminGet(ctx context.Context, id int64) (model.ReturnRequest, error) {
	if id <= 0 {
		return model.ReturnRequest{}, validationError("invalid id")
	}

	var out model.ReturnRequest
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rr, err := r.Returns().FindByID(ctx, id)
		if err == repo.ErrNotFound {
			return notFoundError("return request not found")
		}
		if err != nil {
			return dbError()
		}
		out = rr
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}
	return out, nil
}

type ReturnDecisionInput struct {
	// nil なら申請時の見込み額のまま
	RefundAmount *int64
	AdminNote    string
}

// 承認（pending → approved）。注文は returning になる。
func (u *ReturnUsecase) Approve(ctx context.Context, actor int64, id int64, in ReturnDecisionInput) (model.ReturnRequest, error) {
	return u.transition(ctx, actor, id, model.ReturnStatusPending, model.ReturnStatusApproved,
		func(r repo.TxRepos, rr *model.ReturnRequest, o *model.Order, now time.Time) error {
			if in.RefundAmount != nil {
				if *in.RefundAmount < 0 {
					return validationError("refund_amount must be >= 0")
				}
				rr.RefundAmount = clampRefund(*o, *in.RefundAmount)
			}
			rr.ApprovedAt = &now
			if model.CanTransition(o.OrderStatus, model.OrderStatusReturning) {
				o.OrderStatus = model.OrderStatusReturning
			}
			return nil
		}, in.AdminNote)
}

// 却下（pending → rejected）。理由必須。
func (u *ReturnUsecase) Reject(ctx context.Context, actor int64, id int64, in ReturnDecisionInput) (model.ReturnRequest, error) {
	if strings.TrimSpace(in.AdminNote) == "" {
		return model.ReturnRequest{}, validationError("admin_note required")
	}
	return u.transition(ctx, actor, id, model.ReturnStatusPending, model.ReturnStatusRejected,
		func(r repo.TxRepos, rr *model.ReturnRequest, o *model.Order, now time.Time) error {
			rr.RejectedAt = &now
			return nil
		}, in.AdminNote)
}

// 受領（approved → received）。返品分を在庫に戻して注文は returned。
func (u *ReturnUsecase) Receive(ctx context.Context, actor int64, id int64, in ReturnDecisionInput) (model.ReturnRequest, error) {
	return u.transition(ctx, actor, id, model.ReturnStatusApproved, model.ReturnStatusReceived,
		func(r repo.TxRepos, rr *model.ReturnRequest, o *model.Order, now time.Time) error {
			for _, it := range rr.Items {
				if err := r.Inventory().Restore(ctx, it.ProductVariantID, it.ReturnQuantity); err != nil {
					if err == repo.ErrNotFound {
						continue
					}
					return dbError()
				}
				if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
					ProductVariantID: it.ProductVariantID,
					ActorUserID:      actor,
					Delta:            it.ReturnQuantity,
					Reason:           fmt.Sprintf("return request #%d received", rr.ID),
					CreatedAt:        now,
				}); err != nil {
					return dbError()
				}
			}
			rr.ReceivedAt = &now
			if model.CanTransition(o.OrderStatus, model.OrderStatusReturned) {
				o.OrderStatus = model.OrderStatusReturned
			}
			return nil
		}, in.AdminNote)
}

// 返金（received → refunded）。注文の refunded_amount に加算する。
func (u *ReturnUsecase) Refund(ctx context.Context, actor int64, id int64, in ReturnDecisionInput) (model.ReturnRequest, error) {
	return u.transition(ctx, actor, id, model.ReturnStatusReceived, model.ReturnStatusRefunded,
		func(r repo.TxRepos, rr *model.ReturnRequest, o *model.Order, now time.Time) error {
			if in.RefundAmount != nil {
				if *in.RefundAmount < 0 {
					return validationError("refund_amount must be >= 0")
				}
				rr.RefundAmount = *in.RefundAmount
			}
			if rr.RefundAmount > o.TotalMoney-o.RefundedAmount {
				return validationError("refund_amount exceeds refundable amount")
			}
			rr.RefundStatus = model.RefundStatusCompleted
			rr.RefundedAt = &now
			o.RefundedAmount += rr.RefundAmount
			return nil
		}, in.AdminNote)
}

type returnStep func(r repo.TxRepos, rr *model.ReturnRequest, o *model.Order, now time.Time) error

// 申請と注文を両方ロックして状態を1つ進める。監査ログも残す。
func (u *ReturnUsecase) transition(ctx context.Context, actor int64, id int64, from, to model.ReturnStatus, step returnStep, note string) (model.ReturnRequest, error) {
	if actor <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return model.ReturnRequest{}, validationError("invalid id")
	}

	var out model.ReturnRequest
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rr, err := r.Returns().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return notFoundError("return request not found")
		}
		if err != nil {
			return dbError()
		}
		if rr.Status != from {
			return invalidState(fmt.Sprintf("return request in status %s cannot become %s", rr.Status, to))
		}

		o, err := r.Orders().FindByIDForUpdate(ctx, rr.OrderID)
		if err == repo.ErrNotFound {
			return notFoundError("order not found")
		}
		if err != nil {
			return dbError()
		}
		beforeOrder := o.OrderStatus

		now := u.f.clock.Now()
		if err := step(r, &rr, &o, now); err != nil {
			return err
		}
		rr.Status = to
		if n := strings.TrimSpace(note); n != "" {
			rr.AdminNote = n
		}

		if err := r.Returns().Save(ctx, rr); err != nil {
			return dbError()
		}
		if o.OrderStatus != beforeOrder || to == model.ReturnStatusRefunded {
			if err := r.Orders().Save(ctx, o); err != nil {
				return dbError()
			}
		}

		if err := u.f.audit().write(ctx, r, actor, model.AuditActionUpdateReturnStatus, model.AuditResourceReturn, rr.ID,
			map[string]any{"status": from},
			map[string]any{"status": to, "refund_amount": rr.RefundAmount, "order_status": o.OrderStatus},
		); err != nil {
			return err
		}

		out, err = r.Returns().FindByID(ctx, rr.ID)
		if err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	u.f.events.returnRequest(ctx, out)
	return out, nil
}
