package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット（発行は認証サービス）
	FEURL     string // フロントURL（決済後のリダイレクト先、CORS）

	GHN       GHNConfig
	VNPay     VNPayConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig

	DefaultShippingFee int64         // 見積もり失敗時の送料
	PaymentTTL         time.Duration // オンライン決済の支払期限
}

// 配送業者（GHN）
type GHNConfig struct {
	BaseURL        string
	Token          string
	ShopID         string
	FromDistrictID int
	FromWardCode   string
	Timeout        time.Duration
	SyncDelay      time.Duration // 同期時のAPI呼び出し間隔
}

// 決済（VNPay）
type VNPayConfig struct {
	PayURL     string
	TmnCode    string
	HashSecret string
	ReturnURL  string
}

// 空なら publish しない
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SchedulerConfig struct {
	Enabled              bool
	ExpirySweepInterval  time.Duration
	ShippingSyncInterval time.Duration
}

// .env.<GO_ENV> → .env の順に読む（無くてもよい）
func loadDotenv() {
	if env := os.Getenv("GO_ENV"); env != "" {
		_ = godotenv.Load(".env." + env)
	}
	_ = godotenv.Load()
}

// Loadは環境変数（API サーバー用）
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSweeper は単発ジョブ用（JWT / FE_URL / VNPay は不要）
func LoadSweeper() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateCore(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load() (Config, error) {
	loadDotenv()

	var err error
	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		FEURL:     strings.TrimRight(os.Getenv("FE_URL"), "/"),

		GHN: GHNConfig{
			BaseURL:      strings.TrimRight(getenv("GHN_URL", "https://online-gateway.ghn.vn/shiip/public-api"), "/"),
			Token:        os.Getenv("GHN_TOKEN"),
			ShopID:       os.Getenv("GHN_SHOP_ID"),
			FromWardCode: os.Getenv("GHN_FROM_WARD_CODE"),
		},
		VNPay: VNPayConfig{
			PayURL:     getenv("VNPAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			TmnCode:    os.Getenv("VNPAY_TMN_CODE"),
			HashSecret: os.Getenv("VNPAY_HASH_SECRET"),
			ReturnURL:  os.Getenv("VNPAY_RETURN_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "order-events"),
		},
	}

	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.GHN.FromDistrictID, err = atoiDefault("GHN_FROM_DISTRICT_ID", 0); err != nil {
		return Config{}, err
	}
	if cfg.GHN.Timeout, err = durationDefault("GHN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GHN.SyncDelay, err = durationDefault("GHN_SYNC_DELAY", 200*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.PaymentTTL, err = durationDefault("PAYMENT_TTL", 48*time.Hour); err != nil {
		return Config{}, err
	}
	fee, err := atoiDefault("SHIPPING_DEFAULT_FEE", 15000)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultShippingFee = int64(fee)

	cfg.Scheduler.Enabled, err = boolDefault("SCHEDULER_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	if cfg.Scheduler.ExpirySweepInterval, err = durationDefault("EXPIRY_SWEEP_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Scheduler.ShippingSyncInterval, err = durationDefault("SHIPPING_SYNC_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// 必須チェック
func (c Config) validate() error {
	if err := c.validateCore(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FEURL == "" {
		return fmt.Errorf("FE_URL is required")
	}
	if c.VNPay.TmnCode == "" {
		return fmt.Errorf("VNPAY_TMN_CODE is required")
	}
	if c.VNPay.HashSecret == "" {
		return fmt.Errorf("VNPAY_HASH_SECRET is required")
	}
	if c.VNPay.ReturnURL == "" {
		return fmt.Errorf("VNPAY_RETURN_URL is required")
	}
	return nil
}

// DB と配送業者（API / sweeper 共通）
func (c Config) validateCore() error {
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if c.GHN.Token == "" {
		return fmt.Errorf("GHN_TOKEN is required")
	}
	if c.GHN.ShopID == "" {
		return fmt.Errorf("GHN_SHOP_ID is required")
	}
	if c.DefaultShippingFee < 0 {
		return fmt.Errorf("SHIPPING_DEFAULT_FEE must be >= 0")
	}
	return nil
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func boolDefault(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
