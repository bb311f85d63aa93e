package middleware

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/repository"

	"github.com/labstack/echo/v4"
)

// トークン発行は認証サービス側。ここでは DB のユーザー状態と突き合わせる。
//   - tv と token_version が違う、または無効化されたユーザーは 401
//   - role は DB の値で上書き（降格した管理者は次のリクエストから admin 不可）
//   - DB が引けないときは 503（ログアウト扱いにしない）
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			u, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, errorJSON("user lookup failed"))
			}
			if u == nil || !u.IsActive || u.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserRoleKey, string(u.Role))
			return next(c)
		}
	}
}
