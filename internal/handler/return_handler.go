package handler

import (
	"context"
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 返品申請（顧客）と審査（管理者）
type ReturnHandler struct {
	uc *usecase.ReturnUsecase
}

func NewReturnHandler(uc *usecase.ReturnUsecase) *ReturnHandler {
	return &ReturnHandler{uc: uc}
}

type CreateReturnRequest struct {
	OrderID           int64                     `json:"order_id"`
	ReturnType        string                    `json:"return_type"`
	Reason            string                    `json:"reason"`
	CustomNote        string                    `json:"custom_note"`
	BankName          string                    `json:"bank_name"`
	BankAccountNumber string                    `json:"bank_account_number"`
	BankAccountName   string                    `json:"bank_account_name"`
	Items             []usecase.ReturnItemInput `json:"items"`
}

type ReturnDecisionRequest struct {
	RefundAmount *int64 `json:"refund_amount"`
	AdminNote    string `json:"admin_note"`
}

func (h *ReturnHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/return-requests")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.create)
	g.GET("", h.listMine)
	g.GET("/check/:orderId", h.check)
	g.GET("/:id", h.getMine)

	admin := e.Group("/admin/return-requests")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("", h.adminList)
	admin.GET("/:id", h.adminGet)
	admin.POST("/:id/approve", h.decide(h.uc.Approve, "approved"))
	admin.POST("/:id/reject", h.decide(h.uc.Reject, "rejected"))
	admin.POST("/:id/received", h.decide(h.uc.Receive, "received"))
	admin.POST("/:id/refund", h.decide(h.uc.Refund, "refunded"))
}

func (h *ReturnHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateReturnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), userID, usecase.CreateReturnInput{
		OrderID:           req.OrderID,
		ReturnType:        req.ReturnType,
		Reason:            req.Reason,
		CustomNote:        req.CustomNote,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		BankAccountName:   req.BankAccountName,
		Items:             req.Items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusCreated, "return request created", out)
}

func (h *ReturnHandler) check(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return badRequest(c, "invalid order id")
	}

	out, err := h.uc.Check(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *ReturnHandler) listMine(c echo.Context) error {
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

	out, err := h.uc.ListMine(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *ReturnHandler) getMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMine(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *ReturnHandler) adminList(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.AdminList(c.Request().Context(), c.QueryParam("status"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *ReturnHandler) adminGet(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.AdminGet(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

type returnDecision func(ctx context.Context, actor int64, id int64, in usecase.ReturnDecisionInput) (model.ReturnRequest, error)

// 審査系4本は入力も出力も同じ形
func (h *ReturnHandler) decide(step returnDecision, message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		adminID, ok := getUserIDFromContext(c)
		if !ok {
			return unauthorized(c)
		}

		var req ReturnDecisionRequest
		if c.Request().ContentLength > 0 {
			if err := c.Bind(&req); err != nil {
				return badRequest(c, "invalid body")
			}
		}

		out, err := step(c.Request().Context(), adminID, id, usecase.ReturnDecisionInput{
			RefundAmount: req.RefundAmount,
			AdminNote:    req.AdminNote,
		})
		if err != nil {
			return writeError(c, err)
		}
		return writeOK(c, http.StatusOK, message, out)
	}
}
