package ghn

import "github.com/rs-labo46/ec-order-api/internal/domain/model"

// GHNの状態 → 注文状態
var statusMap = map[string]model.OrderStatus{
	"ready_to_pick":         model.OrderStatusConfirmed,
	"picking":               model.OrderStatusConfirmed,
	"money_collect_picking": model.OrderStatusConfirmed,

	"picked":       model.OrderStatusProcessing,
	"storing":      model.OrderStatusProcessing,
	"sorting":      model.OrderStatusProcessing,
	"transporting": model.OrderStatusProcessing,

	"delivering":               model.OrderStatusDelivering,
	"money_collect_delivering": model.OrderStatusDelivering,

	"delivered": model.OrderStatusDelivered,

	"cancel":    model.OrderStatusCancelled,
	"exception": model.OrderStatusCancelled,
	"damage":    model.OrderStatusCancelled,
	"lost":      model.OrderStatusCancelled,

	"delivery_fail":       model.OrderStatusReturning,
	"waiting_to_return":   model.OrderStatusReturning,
	"return":              model.OrderStatusReturning,
	"return_transporting": model.OrderStatusReturning,
	"return_sorting":      model.OrderStatusReturning,
	"returning":           model.OrderStatusReturning,
	"return_fail":         model.OrderStatusReturning,

	"returned": model.OrderStatusReturned,
}

var statusText = map[string]string{
	"ready_to_pick":            "Chờ lấy hàng",
	"picking":                  "Đang lấy hàng",
	"money_collect_picking":    "Đang thu tiền người gửi",
	"picked":                   "Đã lấy hàng",
	"storing":                  "Hàng đang nằm ở kho",
	"sorting":                  "Đang phân loại",
	"transporting":             "Đang luân chuyển",
	"delivering":               "Đang giao hàng",
	"money_collect_delivering": "Đang thu tiền người nhận",
	"delivered":                "Đã giao hàng",
	"delivery_fail":            "Giao hàng thất bại",
	"waiting_to_return":        "Chờ trả hàng",
	"return":                   "Trả hàng",
	"return_transporting":      "Đang luân chuyển hàng trả",
	"return_sorting":           "Đang phân loại hàng trả",
	"returning":                "Đang trả hàng",
	"return_fail":              "Trả hàng thất bại",
	"returned":                 "Đã trả hàng",
	"cancel":                   "Hủy đơn hàng",
	"exception":                "Đơn hàng ngoại lệ",
	"damage":                   "Hàng bị hư hỏng",
	"lost":                     "Hàng bị thất lạc",
}

// MapStatus は GHN の状態を注文状態に変換する。未知の状態は ok=false。
func MapStatus(ghnStatus string) (model.OrderStatus, bool) {
	s, ok := statusMap[ghnStatus]
	return s, ok
}

func StatusText(ghnStatus string) string {
	if t, ok := statusText[ghnStatus]; ok {
		return t
	}
	return ghnStatus
}
