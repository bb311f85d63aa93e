package server

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/handler"
	"github.com/rs-labo46/ec-order-api/internal/repository"

	"github.com/labstack/echo/v4"
)

// ルート登録に必要なハンドラ一式
type Handlers struct {
	Order          *handler.OrderHandler
	Payment        *handler.PaymentHandler
	Cart           *handler.CartHandler
	Promotion      *handler.PromotionHandler
	Location       *handler.LocationHandler
	Return         *handler.ReturnHandler
	AdminOrder     *handler.AdminOrderHandler
	AdminInventory *handler.AdminInventoryHandler
	AdminAuditLog  *handler.AdminAuditLogHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	//公開（署名で検証）
	h.Payment.RegisterRoutes(e)
	h.Location.RegisterRoutes(e)

	//ログイン必須
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.Promotion.RegisterRoutes(e, cfg, userRepo)
	h.Return.RegisterRoutes(e, cfg, userRepo)

	//ADMIN限定
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminInventory.RegisterRoutes(e, cfg, userRepo)
	h.AdminAuditLog.RegisterRoutes(e, cfg, userRepo)
}
