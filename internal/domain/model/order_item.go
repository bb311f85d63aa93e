package model

import "time"

// 注文明細。チェックアウト時点のスナップショットで、作成後は変更しない。
type OrderItem struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64     `gorm:"not null;index" json:"order_id"`
	ProductVariantID int64     `gorm:"not null;index" json:"product_variant_id"`
	ProductName      string    `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU              string    `gorm:"type:varchar(100)" json:"sku"`
	Size             string    `gorm:"type:varchar(50)" json:"size"`
	Color            string    `gorm:"type:varchar(50)" json:"color"`
	UnitPrice        int64     `gorm:"not null" json:"unit_price"`
	Quantity         int64     `gorm:"not null" json:"quantity"`
	TotalPrice       int64     `gorm:"not null" json:"total_price"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
