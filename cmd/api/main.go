package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/handler"
	"github.com/rs-labo46/ec-order-api/internal/infra/db"
	"github.com/rs-labo46/ec-order-api/internal/infra/ghn"
	"github.com/rs-labo46/ec-order-api/internal/infra/kafka"
	"github.com/rs-labo46/ec-order-api/internal/infra/logger"
	infraRepo "github.com/rs-labo46/ec-order-api/internal/infra/repository"
	"github.com/rs-labo46/ec-order-api/internal/infra/vnpay"
	"github.com/rs-labo46/ec-order-api/internal/scheduler"
	"github.com/rs-labo46/ec-order-api/internal/server"
	"github.com/rs-labo46/ec-order-api/internal/usecase"
	"github.com/rs-labo46/ec-order-api/internal/validator"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	repos := infraRepo.NewRepos(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	//外部サービス
	shipping := ghn.NewClient(cfg.GHN)
	payment := vnpay.NewClient(cfg.VNPay)

	var publisher usecase.EventPublisher = kafka.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = p.Close() }()
		publisher = p
	} else {
		log.Info("kafka brokers not configured, events disabled")
	}

	clock := usecase.SystemClock()
	f := usecase.NewFulfillment(shipping, publisher, log, clock)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, f, payment, validator.NewCheckoutValidator(), usecase.OrderOptions{
		DefaultShippingFee: cfg.DefaultShippingFee,
		PaymentTTL:         cfg.PaymentTTL,
	})
	paymentUC := usecase.NewPaymentUsecase(txm, f, payment)
	sweeper := usecase.NewOrderSweeper(txm, repos.Orders(), f, cfg.GHN.SyncDelay)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, f)
	returnUC := usecase.NewReturnUsecase(txm, f, validator.NewReturnValidator())
	cartUC := usecase.NewCartUsecase(repos.Carts(), repos.CartItems(), repos.Products())
	promotionUC := usecase.NewPromotionUsecase(repos.Promotions(), clock)
	locationUC := usecase.NewLocationUsecase(shipping, cfg.DefaultShippingFee)
	inventoryUC := usecase.NewInventoryUsecase(txm, clock, log)
	auditLogUC := usecase.NewAuditLogUsecase(repos.AuditLogs())

	//Handler生成
	e := server.New(cfg, log, userRepo, server.Handlers{
		Order:          handler.NewOrderHandler(orderUC),
		Payment:        handler.NewPaymentHandler(paymentUC, cfg.FEURL),
		Cart:           handler.NewCartHandler(cartUC),
		Promotion:      handler.NewPromotionHandler(promotionUC),
		Location:       handler.NewLocationHandler(locationUC),
		Return:         handler.NewReturnHandler(returnUC),
		AdminOrder:     handler.NewAdminOrderHandler(adminOrderUC, sweeper),
		AdminInventory: handler.NewAdminInventoryHandler(inventoryUC),
		AdminAuditLog:  handler.NewAdminAuditLogHandler(auditLogUC),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("port", cfg.Port))
		return server.Start(ctx, e, ":"+cfg.Port)
	})

	if cfg.Scheduler.Enabled {
		sch := scheduler.New(log,
			scheduler.Job{Name: "expire_unpaid", Interval: cfg.Scheduler.ExpirySweepInterval, Run: sweeper.ExpireUnpaid},
			scheduler.Job{Name: "sync_shipping", Interval: cfg.Scheduler.ShippingSyncInterval, Run: sweeper.SyncShipping},
		)
		g.Go(func() error { return sch.Run(ctx) })
	}

	return g.Wait()
}
