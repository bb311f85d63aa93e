package usecase

import (
	"context"
	"net/http"

	repo "github.com/rs-labo46/ec-order-api/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// 追加時点の価格をスナップショットとして持ち、チェックアウトはその価格で計算する。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は unit_price_snapshot（追加時点の価格）
type CartItemResponse struct {
	ID               int64  `json:"id"`
	ProductVariantID int64  `json:"product_variant_id"`
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	Size             string `json:"size"`
	Color            string `json:"color"`
	Price            int64  `json:"price"`
	Quantity         int64  `json:"quantity"`
	Stock            int64  `json:"stock"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	ProductVariantID int64
	Quantity         int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// AddToCart はカートに追加（同一バリアントは数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductVariantID <= 0 {
		return CartResponse{}, validationError("invalid product_variant_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, validationError("invalid quantity")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}

	v, err := u.productRepo.FindVariantByID(ctx, in.ProductVariantID)
	if err == repo.ErrNotFound {
		return CartResponse{}, notFoundError("product variant not found")
	}
	if err != nil {
		return CartResponse{}, dbError()
	}
	if !v.IsPurchasable() {
		return CartResponse{}, notFoundError("product variant not found")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	var existingQty int64
	for _, it := range items {
		if it.ProductVariantID == in.ProductVariantID {
			existingQty = it.Quantity
			break
		}
	}
	if existingQty+in.Quantity > v.Stock {
		return CartResponse{}, insufficientStock(v.DisplayName(), v.Stock)
	}

	// unit_price_snapshot は「追加時点の価格」
	if err := u.cartItemRepo.UpsertByCartAndVariant(ctx, cart.ID, in.ProductVariantID, in.Quantity, v.Price); err != nil {
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, validationError("invalid quantity")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	if !owned {
		return CartResponse{}, notFoundError("cart item not found")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, notFoundError("cart item not found")
	}
	if err != nil {
		return CartResponse{}, dbError()
	}

	v, err := u.productRepo.FindVariantByID(ctx, item.ProductVariantID)
	if err == repo.ErrNotFound {
		return CartResponse{}, notFoundError("product variant not found")
	}
	if err != nil {
		return CartResponse{}, dbError()
	}
	if !v.IsPurchasable() {
		return CartResponse{}, notFoundError("product variant not found")
	}
	if in.Quantity > v.Stock {
		return CartResponse{}, insufficientStock(v.DisplayName(), v.Stock)
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, notFoundError("cart item not found")
		}
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, item.CartID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, validationError("invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	if !owned {
		return CartResponse{}, notFoundError("cart item not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, notFoundError("cart item not found")
		}
		return CartResponse{}, dbError()
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError()
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 明細をまとめて返す。販売終了のバリアントは表示しない。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, dbError()
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		v := it.Variant
		if v == nil || !v.IsPurchasable() {
			continue
		}
		resp.Items = append(resp.Items, CartItemResponse{
			ID:               it.ID,
			ProductVariantID: it.ProductVariantID,
			Name:             v.DisplayName(),
			SKU:              v.SKU,
			Size:             v.Size,
			Color:            v.Color,
			Price:            it.UnitPriceSnapshot,
			Quantity:         it.Quantity,
			Stock:            v.Stock,
		})
		resp.Total += it.UnitPriceSnapshot * it.Quantity
	}
	return resp, nil
}
