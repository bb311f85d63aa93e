package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 認証は外部で行う。ここでは token_version の照合と連絡先の参照だけ。
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Fullname     string `gorm:"type:varchar(255)" json:"fullname"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int    `gorm:"not null;default:0" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
