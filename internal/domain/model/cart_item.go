package model

import "time"

// カートの明細
// 追加時点の価格を必ず保存。
type CartItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64           `gorm:"not null;index" json:"cart_id"`
	ProductVariantID  int64           `gorm:"not null;index" json:"product_variant_id"`
	Variant           *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"variant,omitempty"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64           `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
