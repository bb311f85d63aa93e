package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/usecase"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// チェックアウトの入力を検証
func (v *checkoutValidator) ValidateCheckout(ctx context.Context, in usecase.CheckoutInput) error {
	// 受取人
	if strings.TrimSpace(in.Fullname) == "" {
		return errors.New("fullname required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return errors.New("phone_number required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return errors.New("address required")
	}

	// emailは任意。入っていれば形式チェック
	if e := strings.TrimSpace(in.Email); e != "" && !isEmailLike(e) {
		return errors.New("invalid email")
	}

	if in.ProvinceID < 0 || in.DistrictID < 0 {
		return errors.New("invalid location")
	}

	switch model.PaymentMethod(in.PaymentMethod) {
	case model.PaymentMethodCOD, model.PaymentMethodVNPay:
	default:
		return errors.New("payment_method must be cod or vnpay")
	}

	if len(strings.TrimSpace(in.IdempotencyKey)) > 255 {
		return errors.New("invalid idempotency key")
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
