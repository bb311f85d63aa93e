package model

import "time"

type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixedAmount  DiscountType = "fixed_amount"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
)

// 割引コード
type Promotion struct {
	ID            int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string       `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Description   string       `gorm:"type:text" json:"description"`
	DiscountType  DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue int64        `gorm:"not null;default:0" json:"discount_value"`
	MinOrderValue int64        `gorm:"not null;default:0" json:"min_order_value"`

	//nil は無制限
	UsageLimit *int64 `json:"usage_limit"`
	UsedCount  int64  `gorm:"not null;default:0;check:used_count >= 0" json:"used_count"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
