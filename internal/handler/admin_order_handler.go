package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc      *usecase.AdminOrderUsecase
	sweeper *usecase.OrderSweeper
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, sweeper *usecase.OrderSweeper) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, sweeper: sweeper}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.POST("/orders/sync-all-ghn", h.syncAll)
	admin.POST("/orders/expire-unpaid", h.expireUnpaid)
	admin.GET("/orders/:id", h.detail)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.POST("/orders/:id/cancel", h.cancel)
	admin.POST("/orders/:id/sync-ghn", h.syncOne)
	admin.DELETE("/orders/:id", h.delete)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		userID = &id
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		toPtr = &tm
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, "", out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Detail(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//操作した管理者ID（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.UpdateStatus(
		c.Request().Context(),
		adminID,
		orderID,
		usecase.AdminUpdateOrderStatusInput{Status: req.Status},
	)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, "updated", out)
}

func (h *AdminOrderHandler) cancel(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Cancel(c.Request().Context(), adminID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "order cancelled", out)
}

func (h *AdminOrderHandler) delete(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.Delete(c.Request().Context(), adminID, orderID); err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "deleted", nil)
}

func (h *AdminOrderHandler) syncOne(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.sweeper.SyncOne(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "synced", out)
}

func (h *AdminOrderHandler) syncAll(c echo.Context) error {
	out, err := h.sweeper.SyncShipping(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "synced", out)
}

func (h *AdminOrderHandler) expireUnpaid(c echo.Context) error {
	out, err := h.sweeper.ExpireUnpaid(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "expired", out)
}
