package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/config"
	"github.com/rs-labo46/ec-order-api/internal/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	pgCfg, err := pgx.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	//時刻はUTCで保存する
	pgCfg.RuntimeParams["timezone"] = "UTC"
	pgCfg.RuntimeParams["application_name"] = "ec-order-api"

	sqlDB := stdlib.OpenDB(*pgCfg)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg.GoEnv, sqlDB)
}

// dialectorを受け取って開く（テストでは sqlite を渡す）
func Open(dialector gorm.Dialector, goEnv string, closer *sql.DB) (*gorm.DB, error) {
	level := logger.Warn
	if goEnv == "dev" {
		level = logger.Info
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	return gdb, nil
}

// DATABASE_URL があれば最優先で使う
func dsn(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
	)
}

// テーブル作成
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Promotion{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.ReturnRequest{},
		&model.ReturnRequestItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	)
}
