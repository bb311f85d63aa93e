package handler

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PromotionHandler struct {
	uc *usecase.PromotionUsecase
}

func NewPromotionHandler(uc *usecase.PromotionUsecase) *PromotionHandler {
	return &PromotionHandler{uc: uc}
}

type CheckPromotionRequest struct {
	Code        string `json:"code"`
	OrderTotal  int64  `json:"order_total"`
	ShippingFee int64  `json:"shipping_fee"`
}

func (h *PromotionHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/promotions")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/check", h.check)
}

func (h *PromotionHandler) check(c echo.Context) error {
	var req CheckPromotionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Check(c.Request().Context(), usecase.CheckPromotionInput{
		Code:        req.Code,
		OrderTotal:  req.OrderTotal,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "promotion applied", out)
}
