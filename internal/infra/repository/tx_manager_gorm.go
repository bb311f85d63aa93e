package repository

import (
	"context"

	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
	promotions repo.PromotionRepository
	returns    repo.ReturnRequestRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository          { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository  { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository            { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository    { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository   { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository      { return r.products }
func (r *txReposGorm) Promotions() repo.PromotionRepository  { return r.promotions }
func (r *txReposGorm) Returns() repo.ReturnRequestRepository { return r.returns }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository    { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newTxRepos(tx))
	})
}

// Tx外の読み取り用にも同じ組み立てを使う
func NewRepos(db *gorm.DB) repo.TxRepos {
	return newTxRepos(db)
}

func newTxRepos(db *gorm.DB) *txReposGorm {
	return &txReposGorm{
		orders:     NewOrderGormRepository(db),
		orderItems: NewOrderItemGormRepository(db),
		carts:      NewCartGormRepository(db),
		cartItems:  NewCartGormRepository(db),
		inventory:  NewInventoryGormRepository(db),
		products:   NewProductGormRepository(db),
		promotions: NewPromotionGormRepository(db),
		returns:    NewReturnRequestGormRepository(db),
		auditLogs:  NewAuditLogGormRepository(db),
	}
}
