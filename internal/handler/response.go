package handler

import (
	"net/http"
	"strconv"

	"github.com/rs-labo46/ec-order-api/internal/middleware"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 全APIの共通レスポンス
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeOK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func writeFail(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, Response{Success: false, Message: message, Error: code})
}

func badRequest(c echo.Context, message string) error {
	return writeFail(c, http.StatusBadRequest, "bad_request", message)
}

func unauthorized(c echo.Context) error {
	return writeFail(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
}

// usecase のエラーをそのままステータスに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return writeFail(c, he.Status, he.Code(), he.Message)
	}

	//500
	c.Logger().Error(err)
	return writeFail(c, http.StatusInternalServerError, "internal_error", "internal error")
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空なら def
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
