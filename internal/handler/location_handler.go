package handler

import (
	"net/http"

	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 住所選択用の公開API（配送業者のマスタを中継）
type LocationHandler struct {
	uc *usecase.LocationUsecase
}

func NewLocationHandler(uc *usecase.LocationUsecase) *LocationHandler {
	return &LocationHandler{uc: uc}
}

type ShippingFeeRequest struct {
	DistrictID     int    `json:"district_id"`
	WardCode       string `json:"ward_code"`
	Quantity       int64  `json:"quantity"`
	InsuranceValue int64  `json:"insurance_value"`
}

func (h *LocationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/locations/provinces", h.provinces)
	e.GET("/locations/districts", h.districts)
	e.GET("/locations/wards", h.wards)
	e.POST("/shipping/fee", h.fee)
}

func (h *LocationHandler) provinces(c echo.Context) error {
	out, err := h.uc.Provinces(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *LocationHandler) districts(c echo.Context) error {
	provinceID, ok := queryInt(c, "province_id", 0)
	if !ok {
		return badRequest(c, "invalid province_id")
	}
	out, err := h.uc.Districts(c.Request().Context(), provinceID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *LocationHandler) wards(c echo.Context) error {
	districtID, ok := queryInt(c, "district_id", 0)
	if !ok {
		return badRequest(c, "invalid district_id")
	}
	out, err := h.uc.Wards(c.Request().Context(), districtID)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}

func (h *LocationHandler) fee(c echo.Context) error {
	var req ShippingFeeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.QuoteFee(c.Request().Context(), usecase.ShippingFeeInput{
		DistrictID:     req.DistrictID,
		WardCode:       req.WardCode,
		Quantity:       req.Quantity,
		InsuranceValue: req.InsuranceValue,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", out)
}
