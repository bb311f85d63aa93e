package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// VNPay からの戻り（ブラウザ）と IPN（サーバー間）。どちらも認証なし、署名で検証する。
type PaymentHandler struct {
	uc    *usecase.PaymentUsecase
	feURL string
}

func NewPaymentHandler(uc *usecase.PaymentUsecase, feURL string) *PaymentHandler {
	return &PaymentHandler{uc: uc, feURL: feURL}
}

// VNPay が期待する IPN の応答
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/payments/vnpay")
	g.GET("/return", h.vnpayReturn)
	g.GET("/ipn", h.vnpayIPN)
}

func (h *PaymentHandler) vnpayReturn(c echo.Context) error {
	out, err := h.uc.HandleCallback(c.Request().Context(), c.QueryParams())
	if err != nil || !out.Success {
		if err != nil {
			c.Logger().Warn(err)
		}
		return c.Redirect(http.StatusFound, h.feURL+"/payment-failed")
	}
	return c.Redirect(http.StatusFound, fmt.Sprintf("%s/payment-success?order_id=%d", h.feURL, out.OrderID))
}

func (h *PaymentHandler) vnpayIPN(c echo.Context) error {
	out, err := h.uc.HandleCallback(c.Request().Context(), c.QueryParams())
	return c.JSON(http.StatusOK, ipnResponse(out, err))
}

// usecase の結果を VNPay の RspCode に変換
func ipnResponse(out usecase.PaymentCallbackOutput, err error) IPNResponse {
	switch {
	case err == nil && out.AlreadyPaid:
		return IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	case err == nil:
		return IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case errors.Is(err, usecase.ErrInvalidSignature):
		return IPNResponse{RspCode: "97", Message: "Invalid Checksum"}
	case errors.Is(err, usecase.ErrNotFound):
		return IPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, usecase.ErrInvalidAmount):
		return IPNResponse{RspCode: "04", Message: "Invalid amount"}
	case errors.Is(err, usecase.ErrInvalidState):
		return IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	}
	return IPNResponse{RspCode: "99", Message: "Unknown error"}
}
