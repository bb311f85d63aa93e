package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	IsActive    bool             `gorm:"not null;default:false" json:"is_active"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt   time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// 在庫単位（商品 × サイズ × カラー）。
// price は商品側の値引き込みの販売価格。
type ProductVariant struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID     int64     `gorm:"not null;index" json:"product_id"`
	Product       *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	SKU           string    `gorm:"type:varchar(100);uniqueIndex" json:"sku"`
	Size          string    `gorm:"type:varchar(50)" json:"size"`
	Color         string    `gorm:"type:varchar(50)" json:"color"`
	OriginalPrice int64     `gorm:"not null" json:"original_price"`
	Price         int64     `gorm:"not null" json:"price"`
	Stock         int64     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 商品名（取れなければSKU）
func (v ProductVariant) DisplayName() string {
	if v.Product != nil && v.Product.Name != "" {
		return v.Product.Name
	}
	return v.SKU
}

// 購入可能か（商品・バリアント両方が公開中。商品が削除済みなら Product は nil）
func (v ProductVariant) IsPurchasable() bool {
	return v.IsActive && v.Product != nil && v.Product.IsActive
}
