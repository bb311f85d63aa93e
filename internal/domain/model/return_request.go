package model

import "time"

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
	ReturnStatusReceived ReturnStatus = "received"
	ReturnStatusRefunded ReturnStatus = "refunded"
)

// rejected 以外は「有効な返品」として1注文1件まで
var ActiveReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusReceived,
	ReturnStatusRefunded,
}

type ReturnType string

const (
	ReturnTypeFull    ReturnType = "full"
	ReturnTypePartial ReturnType = "partial"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
)

// 配達後の返品申請
type ReturnRequest struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64        `gorm:"not null;index" json:"order_id"`
	UserID     int64        `gorm:"not null;index" json:"user_id"`
	ReturnType ReturnType   `gorm:"type:varchar(20);not null" json:"return_type"`
	Reason     string       `gorm:"type:varchar(255);not null" json:"reason"`
	CustomNote string       `gorm:"type:text" json:"custom_note"`
	Status     ReturnStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	RefundAmount int64        `gorm:"not null;default:0" json:"refund_amount"`
	RefundStatus RefundStatus `gorm:"type:varchar(20);not null" json:"refund_status"`

	//返金先口座
	BankName          string `gorm:"type:varchar(255)" json:"bank_name"`
	BankAccountNumber string `gorm:"type:varchar(50)" json:"bank_account_number"`
	BankAccountName   string `gorm:"type:varchar(255)" json:"bank_account_name"`

	AdminNote  string     `gorm:"type:text" json:"admin_note"`
	ApprovedAt *time.Time `json:"approved_at"`
	RejectedAt *time.Time `json:"rejected_at"`
	ReceivedAt *time.Time `json:"received_at"`
	RefundedAt *time.Time `json:"refunded_at"`

	Items []ReturnRequestItem `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type ReturnRequestItem struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ReturnRequestID  int64 `gorm:"not null;index" json:"return_request_id"`
	OrderItemID      int64 `gorm:"not null;index" json:"order_item_id"`
	ProductVariantID int64 `gorm:"not null" json:"product_variant_id"`
	OrderedQuantity  int64 `gorm:"not null" json:"ordered_quantity"`
	ReturnQuantity   int64 `gorm:"not null" json:"return_quantity"`
	UnitPrice        int64 `gorm:"not null" json:"unit_price"`
	RefundAmount     int64 `gorm:"not null" json:"refund_amount"`
}
