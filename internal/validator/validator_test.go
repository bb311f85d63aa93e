package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestIsEmailLike(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@test.com", true},
		{"nguyen.van.a@shop.com.vn", true},
		{"@", false},
		{"a@", false},
		{"@test.com", false},
		{"a@b", false},
		{"a b@test.com", false},
		{"a@@test.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmailLike(tt.in))
		})
	}
}

func validCheckout() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		Fullname:      "Nguyen Van A",
		Email:         "a@test.com",
		PhoneNumber:   "0900000000",
		ProvinceID:    202,
		DistrictID:    1442,
		WardCode:      "20101",
		Address:       "1 Le Loi",
		PaymentMethod: "cod",
	}
}

func TestValidateCheckout(t *testing.T) {
	v := NewCheckoutValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateCheckout(ctx, validCheckout()))

	// emailは任意
	in := validCheckout()
	in.Email = ""
	assert.NoError(t, v.ValidateCheckout(ctx, in))

	tests := []struct {
		name    string
		mutate  func(in *usecase.CheckoutInput)
		wantMsg string
	}{
		{"fullname", func(in *usecase.CheckoutInput) { in.Fullname = " " }, "fullname required"},
		{"phone", func(in *usecase.CheckoutInput) { in.PhoneNumber = "" }, "phone_number required"},
		{"address", func(in *usecase.CheckoutInput) { in.Address = "" }, "address required"},
		{"email", func(in *usecase.CheckoutInput) { in.Email = "@" }, "invalid email"},
		{"location", func(in *usecase.CheckoutInput) { in.DistrictID = -1 }, "invalid location"},
		{"payment method", func(in *usecase.CheckoutInput) { in.PaymentMethod = "paypal" }, "payment_method must be cod or vnpay"},
		{"idempotency key", func(in *usecase.CheckoutInput) { in.IdempotencyKey = strings.Repeat("k", 256) }, "invalid idempotency key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCheckout()
			tt.mutate(&in)
			assert.EqualError(t, v.ValidateCheckout(ctx, in), tt.wantMsg)
		})
	}
}

func validReturn() usecase.CreateReturnInput {
	return usecase.CreateReturnInput{
		OrderID:           1,
		ReturnType:        "partial",
		Reason:            "wrong size",
		BankName:          "VCB",
		BankAccountNumber: "0123456789",
		BankAccountName:   "NGUYEN VAN A",
		Items:             []usecase.ReturnItemInput{{OrderItemID: 1, Quantity: 1}},
	}
}

func TestValidateCreateReturn(t *testing.T) {
	v := NewReturnValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateCreateReturn(ctx, validReturn()))

	tests := []struct {
		name    string
		mutate  func(in *usecase.CreateReturnInput)
		wantMsg string
	}{
		{"order id", func(in *usecase.CreateReturnInput) { in.OrderID = 0 }, "invalid order_id"},
		{"return type", func(in *usecase.CreateReturnInput) { in.ReturnType = "exchange" }, "return_type must be full or partial"},
		{"reason", func(in *usecase.CreateReturnInput) { in.Reason = "  " }, "reason required"},
		{"bank", func(in *usecase.CreateReturnInput) { in.BankAccountName = "" }, "bank account required"},
		{"no items", func(in *usecase.CreateReturnInput) { in.Items = nil }, "items required"},
		{"zero quantity", func(in *usecase.CreateReturnInput) { in.Items[0].Quantity = 0 }, "invalid item"},
		{"duplicated", func(in *usecase.CreateReturnInput) {
			in.Items = append(in.Items, usecase.ReturnItemInput{OrderItemID: 1, Quantity: 1})
		}, "duplicated item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validReturn()
			tt.mutate(&in)
			assert.EqualError(t, v.ValidateCreateReturn(ctx, in), tt.wantMsg)
		})
	}
}
