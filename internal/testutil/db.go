// Package testutil は sqlite のインメモリDBとテスト用の部品。
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	"github.com/rs-labo46/ec-order-api/internal/infra/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenDB はテストごとに独立したインメモリDBを開いてマイグレーションする。
// 接続は1本だけなので、Tx の中では必ず Tx の repo を使うこと。
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	gdb, err := db.Open(sqlite.Open(dsn), "test", nil)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// FixedClock は Now が常に同じ時刻を返す
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// =====================
// seed
// =====================

func SeedUser(t *testing.T, gdb *gorm.DB, role model.Role) model.User {
	t.Helper()
	u := model.User{
		Email:    uuid.NewString() + "@test.com",
		Fullname: "Nguyen Van A",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

type VariantSeed struct {
	Name   string
	SKU    string
	Price  int64
	Stock  int64
	Active bool
}

// SeedVariant は公開中の商品とバリアントを1つずつ作る
func SeedVariant(t *testing.T, gdb *gorm.DB, s VariantSeed) model.ProductVariant {
	t.Helper()
	if s.SKU == "" {
		s.SKU = "SKU-" + uuid.NewString()[:8]
	}
	p := model.Product{Name: s.Name, IsActive: true}
	require.NoError(t, gdb.Create(&p).Error)

	v := model.ProductVariant{
		ProductID:     p.ID,
		SKU:           s.SKU,
		Size:          "M",
		Color:         "black",
		OriginalPrice: s.Price,
		Price:         s.Price,
		Stock:         s.Stock,
		IsActive:      true,
	}
	require.NoError(t, gdb.Create(&v).Error)

	// default:true のため false は作成後に落とす
	if !s.Active {
		require.NoError(t, gdb.Model(&model.ProductVariant{}).Where("id = ?", v.ID).Update("is_active", false).Error)
		v.IsActive = false
	}
	v.Product = &p
	return v
}

func Stock(t *testing.T, gdb *gorm.DB, variantID int64) int64 {
	t.Helper()
	var v model.ProductVariant
	require.NoError(t, gdb.First(&v, variantID).Error)
	return v.Stock
}

type PromotionSeed struct {
	Code          string
	Type          model.DiscountType
	Value         int64
	MinOrderValue int64
	UsageLimit    *int64
	UsedCount     int64
	Start         time.Time
	End           time.Time
}

func SeedPromotion(t *testing.T, gdb *gorm.DB, s PromotionSeed) model.Promotion {
	t.Helper()
	p := model.Promotion{
		Code:          s.Code,
		Name:          s.Code,
		DiscountType:  s.Type,
		DiscountValue: s.Value,
		MinOrderValue: s.MinOrderValue,
		UsageLimit:    s.UsageLimit,
		UsedCount:     s.UsedCount,
		StartDate:     s.Start,
		EndDate:       s.End,
		IsActive:      true,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func UsedCount(t *testing.T, gdb *gorm.DB, promotionID int64) int64 {
	t.Helper()
	var p model.Promotion
	require.NoError(t, gdb.First(&p, promotionID).Error)
	return p.UsedCount
}

type CartLine struct {
	Variant  model.ProductVariant
	Quantity int64
}

// SeedCart はACTIVEカートに明細を入れる（価格は現在の販売価格）
func SeedCart(t *testing.T, gdb *gorm.DB, userID int64, lines ...CartLine) model.Cart {
	t.Helper()
	c := model.Cart{UserID: userID, Status: model.CartStatusActive}
	require.NoError(t, gdb.Create(&c).Error)

	for _, l := range lines {
		require.NoError(t, gdb.Create(&model.CartItem{
			CartID:            c.ID,
			ProductVariantID:  l.Variant.ID,
			Quantity:          l.Quantity,
			UnitPriceSnapshot: l.Variant.Price,
		}).Error)
	}
	return c
}

func ReloadOrder(t *testing.T, gdb *gorm.DB, orderID int64) model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, gdb.Preload("Items").First(&o, orderID).Error)
	return o
}

// SeedOrder は注文と明細をそのまま保存する（チェックアウトを通さない）
func SeedOrder(t *testing.T, gdb *gorm.DB, o model.Order, items ...model.OrderItem) model.Order {
	t.Helper()
	if o.OrderStatus == "" {
		o.OrderStatus = model.OrderStatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = model.PaymentMethodCOD
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.PaymentStatusUnpaid
	}
	if o.Fullname == "" {
		o.Fullname = "Nguyen Van A"
		o.PhoneNumber = "0900000000"
		o.DistrictID = 1442
		o.WardCode = "20101"
		o.Address = "1 Le Loi"
	}
	o.Items = nil
	require.NoError(t, gdb.Create(&o).Error)

	for i := range items {
		items[i].OrderID = o.ID
		if items[i].TotalPrice == 0 {
			items[i].TotalPrice = items[i].UnitPrice * items[i].Quantity
		}
		if items[i].ProductName == "" {
			items[i].ProductName = "item"
		}
		require.NoError(t, gdb.Create(&items[i]).Error)
	}
	o.Items = items
	return o
}

func StrPtr(s string) *string { return &s }

func TimePtr(t time.Time) *time.Time { return &t }
