package handler

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type CheckoutRequest struct {
	Fullname      string `json:"fullname"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	ProvinceID    int    `json:"province_id"`
	DistrictID    int    `json:"district_id"`
	WardCode      string `json:"ward_code"`
	Address       string `json:"address"`
	Note          string `json:"note"`
	PaymentMethod string `json:"payment_method"`
	PromotionCode string `json:"promotion_code"`
	BankCode      string `json:"bank_code"`
}

type RetryPaymentRequest struct {
	BankCode string `json:"bank_code"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.checkout)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/retry-payment", h.retryPayment)
}

func (h *OrderHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.uc.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		Fullname:       req.Fullname,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		ProvinceID:     req.ProvinceID,
		DistrictID:     req.DistrictID,
		WardCode:       req.WardCode,
		Address:        req.Address,
		Note:           req.Note,
		PaymentMethod:  req.PaymentMethod,
		PromotionCode:  req.PromotionCode,
		BankCode:       req.BankCode,
		ClientIP:       c.RealIP(),
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusCreated, "order created", out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, c.QueryParam("status"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "order cancelled", out)
}

func (h *OrderHandler) retryPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	// body は省略可
	var req RetryPaymentRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	out, err := h.uc.RetryPayment(c.Request().Context(), userID, id, req.BankCode, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}
