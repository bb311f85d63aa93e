package validator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/usecase"
)

type returnValidator struct{}

func NewReturnValidator() usecase.ReturnValidator {
	return &returnValidator{}
}

// 返品申請の入力を検証（注文との突き合わせは usecase 側）
func (v *returnValidator) ValidateCreateReturn(ctx context.Context, in usecase.CreateReturnInput) error {
	if in.OrderID <= 0 {
		return errors.New("invalid order_id")
	}
	switch model.ReturnType(in.ReturnType) {
	case model.ReturnTypeFull, model.ReturnTypePartial:
	default:
		return errors.New("return_type must be full or partial")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return errors.New("reason required")
	}

	//返金先口座
	if strings.TrimSpace(in.BankName) == "" ||
		strings.TrimSpace(in.BankAccountNumber) == "" ||
		strings.TrimSpace(in.BankAccountName) == "" {
		return errors.New("bank account required")
	}

	if len(in.Items) == 0 {
		return errors.New("items required")
	}
	seen := map[int64]bool{}
	for _, it := range in.Items {
		if it.OrderItemID <= 0 || it.Quantity < 1 {
			return errors.New("invalid item")
		}
		if seen[it.OrderItemID] {
			return errors.New("duplicated item")
		}
		seen[it.OrderItemID] = true
	}
	return nil
}
