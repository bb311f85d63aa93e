package handler

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// InventoryUpdateRequest は在庫更新の入力です。
type InventoryUpdateRequest struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

// /admin/variants/:id/stock
type AdminInventoryHandler struct {
	uc *usecase.InventoryUsecase
}

// DI
func NewAdminInventoryHandler(uc *usecase.InventoryUsecase) *AdminInventoryHandler {
	return &AdminInventoryHandler{uc: uc}
}

func (h *AdminInventoryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.PUT("/variants/:id/stock", h.updateStock)
}

func (h *AdminInventoryHandler) updateStock(c echo.Context) error {
	variantID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid variant id")
	}

	var req InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.SetStock(
		c.Request().Context(),
		adminID,
		variantID,
		req.Stock,
		req.Reason,
	)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, "stock updated", out)
}
