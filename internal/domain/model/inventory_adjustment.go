package model

import "time"

//在庫調整の履歴（管理者の手動変更・返品の戻し入れ）

type InventoryAdjustment struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductVariantID int64     `gorm:"not null;index" json:"product_variant_id"`
	ActorUserID      int64     `gorm:"not null;index" json:"actor_user_id"`
	Delta            int64     `gorm:"not null" json:"delta"`
	Reason           string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
