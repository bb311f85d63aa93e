package usecase

import (
	"context"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// 1回の掃除で見る最大件数
const sweepBatchSize = 500

type SweepResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// OrderSweeper は支払期限切れの掃除と配送状況の同期。
// 同じ種類の掃除はプロセス内で同時に1つだけ（2つ目は ErrSweepRunning）。
// 別プロセス（cmd/sweeper と API のスケジューラ）とは注文ごとの FOR UPDATE で直列化する。
type OrderSweeper struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	f        *Fulfillment
	limiter  *rate.Limiter
	expiring *semaphore.Weighted
	syncing  *semaphore.Weighted
}

// orders は候補の抽出用（トランザクション外）
func NewOrderSweeper(tx repo.TransactionManager, orders repo.OrderRepository, f *Fulfillment, syncDelay time.Duration) *OrderSweeper {
	limit := rate.Inf
	if syncDelay > 0 {
		limit = rate.Every(syncDelay)
	}
	return &OrderSweeper{
		tx:       tx,
		orders:   orders,
		f:        f,
		limiter:  rate.NewLimiter(limit, 1),
		expiring: semaphore.NewWeighted(1),
		syncing:  semaphore.NewWeighted(1),
	}
}

// ExpireUnpaid は支払期限を過ぎた未払いのオンライン決済注文をキャンセルする。
// 1件ごとに別トランザクションで、ロック後に条件を確認し直す。
func (s *OrderSweeper) ExpireUnpaid(ctx context.Context) (SweepResult, error) {
	if !s.expiring.TryAcquire(1) {
		return SweepResult{}, newKindError(ErrSweepRunning, "expiry sweep already running")
	}
	defer s.expiring.Release(1)

	now := s.f.clock.Now()
	ids, err := s.orders.ListExpiredUnpaidIDs(ctx, now, sweepBatchSize)
	if err != nil {
		return SweepResult{}, dbError()
	}

	res := SweepResult{Total: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		changed, err := s.expireOne(ctx, id, now)
		switch {
		case err != nil:
			res.Failed++
			s.f.log.Error("expire order failed", zap.Int64("order_id", id), zap.Error(err))
		case changed:
			res.Succeeded++
		default:
			res.Unchanged++
		}
	}

	s.f.log.Info("expiry sweep finished",
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed),
	)
	return res, ctx.Err()
}

func (s *OrderSweeper) expireOne(ctx context.Context, orderID int64, now time.Time) (bool, error) {
	var expired model.Order
	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		//直前に支払われた・キャンセルされた注文は触らない
		if o.PaymentMethod != model.PaymentMethodVNPay ||
			o.PaymentStatus != model.PaymentStatusUnpaid ||
			o.OrderStatus == model.OrderStatusCancelled ||
			!o.IsPaymentExpired(now) {
			return nil
		}
		if err := s.f.compensate(ctx, r, &o, true); err != nil {
			return err
		}
		expired = o
		return nil
	})
	if err != nil || expired.ID == 0 {
		return false, err
	}
	s.f.events.order(ctx, EventOrderExpired, expired)
	return true, nil
}

// SyncShipping は配送コードを持つ未完了の注文を配送業者の状態に合わせる。
// API呼び出しの間隔は limiter で空ける。
func (s *OrderSweeper) SyncShipping(ctx context.Context) (SweepResult, error) {
	if !s.syncing.TryAcquire(1) {
		return SweepResult{}, newKindError(ErrSweepRunning, "shipping sync already running")
	}
	defer s.syncing.Release(1)

	ids, err := s.orders.ListSyncableIDs(ctx, sweepBatchSize)
	if err != nil {
		return SweepResult{}, dbError()
	}

	res := SweepResult{Total: len(ids)}
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}
		_, changed, err := s.syncOne(ctx, id)
		switch {
		case err != nil:
			res.Failed++
			s.f.log.Error("sync order failed", zap.Int64("order_id", id), zap.Error(err))
		case changed:
			res.Succeeded++
		default:
			res.Unchanged++
		}
	}

	s.f.log.Info("shipping sync finished",
		zap.Int("total", res.Total),
		zap.Int("updated", res.Succeeded),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed),
	)
	return res, ctx.Err()
}

type SyncOneOutput struct {
	Order   OrderOutput `json:"order"`
	Changed bool        `json:"changed"`
}

// SyncOne は管理画面からの手動同期
func (s *OrderSweeper) SyncOne(ctx context.Context, orderID int64) (SyncOneOutput, error) {
	if orderID <= 0 {
		return SyncOneOutput{}, validationError("invalid id")
	}
	o, changed, err := s.syncOne(ctx, orderID)
	if err != nil {
		return SyncOneOutput{}, err
	}
	return SyncOneOutput{Order: toOrderOutput(o), Changed: changed}, nil
}

// 配送業者への問い合わせはロックの外で行い、反映だけをトランザクションにする
func (s *OrderSweeper) syncOne(ctx context.Context, orderID int64) (model.Order, bool, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, false, notFoundError("order not found")
	}
	if err != nil {
		return model.Order{}, false, dbError()
	}
	if !o.HasShipment() {
		return model.Order{}, false, invalidState("order has no shipping order")
	}

	detail, err := s.f.shipping.GetShipment(ctx, *o.ShippingOrderCode)
	if err != nil {
		return model.Order{}, false, newKindError(ErrGateway, "shipping provider unavailable")
	}

	var (
		synced  model.Order
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return dbError()
		}
		changed = s.f.applyShipmentDetail(&cur, detail)
		if err := r.Orders().Save(ctx, cur); err != nil {
			return dbError()
		}
		synced, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return model.Order{}, false, err
	}

	if changed {
		s.f.events.order(ctx, EventOrderStatusChanged, synced)
	}
	return synced, changed, nil
}
