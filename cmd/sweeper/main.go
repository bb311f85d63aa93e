// sweeper は cron や手動実行向けの単発ジョブ。
//
//	sweeper -job expire
//	sweeper -job sync [-order-id 42]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/infra/db"
	"github.com/rs-labo46/ec-order-api/internal/infra/ghn"
	"github.com/rs-labo46/ec-order-api/internal/infra/kafka"
	"github.com/rs-labo46/ec-order-api/internal/infra/logger"
	infraRepo "github.com/rs-labo46/ec-order-api/internal/infra/repository"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"go.uber.org/zap"
)

func main() {
	job := flag.String("job", "", "expire | sync")
	orderID := flag.Int64("order-id", 0, "sync only this order")
	flag.Parse()

	cfg, err := config.LoadSweeper()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *job, *orderID); err != nil {
		log.Error("sweeper failed", zap.String("job", *job), zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, job string, orderID int64) error {
	if job != "expire" && job != "sync" {
		return fmt.Errorf("unknown job %q (expire | sync)", job)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}

	var publisher usecase.EventPublisher = kafka.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = p.Close() }()
		publisher = p
	}

	txm := infraRepo.NewTxManagerGorm(gormDB)
	repos := infraRepo.NewRepos(gormDB)
	f := usecase.NewFulfillment(ghn.NewClient(cfg.GHN), publisher, log, usecase.SystemClock())
	sweeper := usecase.NewOrderSweeper(txm, repos.Orders(), f, cfg.GHN.SyncDelay)

	switch {
	case job == "sync" && orderID > 0:
		out, err := sweeper.SyncOne(ctx, orderID)
		if err != nil {
			return err
		}
		log.Info("order synced",
			zap.Int64("order_id", orderID),
			zap.Bool("changed", out.Changed),
			zap.String("order_status", string(out.Order.OrderStatus)),
		)
		return nil
	case job == "sync":
		_, err := sweeper.SyncShipping(ctx)
		return err
	default:
		_, err := sweeper.ExpireUnpaid(ctx)
		return err
	}
}
