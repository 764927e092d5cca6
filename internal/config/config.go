package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"momopay/internal/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Infof("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetInt64Env returns an int64 environment variable or a default value.
func GetInt64Env(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv parses values like "90s" or "5m".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// ProviderConfig carries the credentials and endpoints of one mobile-money provider.
type ProviderConfig struct {
	Name              string
	BaseURL           string
	TokenURL          string
	ClientID          string
	ClientSecret      string
	SubscriptionKey   string
	TargetEnvironment string
	Country           string
	Currency          string
	WalletID          string
	WebhookSecret     string
	TokenMargin       time.Duration
	Timeout           time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type VoucherConfig struct {
	ServerURL    string
	HandoffWait  time.Duration
	HandoffPoll  time.Duration
	DeliveredTTL time.Duration
}

type WithdrawalConfig struct {
	Charge  int64
	Minimum int64
}

type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogJSON   bool
	JWTSecret string

	Database DatabaseConfig
	Redis    RedisConfig

	PlatformWalletID    string
	PlatformWalletPhone string
	Currency            string

	Airtel ProviderConfig
	MTN    ProviderConfig
	Iotec  ProviderConfig

	PrimaryProvider      string
	SecondaryProvider    string
	DisbursementProvider string

	// DisbursementWebhookSecret signs payout callbacks.
	DisbursementWebhookSecret string

	Voucher    VoucherConfig
	Withdrawal WithdrawalConfig

	ReconcileInterval time.Duration
	ReconcileAge      time.Duration

	AllowOrigins     string
	CollectRateLimit int
	// CollectMaxAmount caps a single collection; zero disables the cap.
	CollectMaxAmount int64
}

// Load assembles the typed configuration from the environment.
func Load() *Config {
	cfg := &Config{
		Env:       GetEnv("ENV", "development"),
		Port:      GetEnv("PORT", "3000"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogJSON:   GetBoolEnv("LOG_JSON", IsProduction()),
		JWTSecret: GetEnv("JWT_SECRET", "momopay"),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "momopay"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		PlatformWalletID:    GetEnv("PLATFORM_WALLET_ID", "00000000-0000-0000-0000-000000000001"),
		PlatformWalletPhone: GetEnv("PLATFORM_WALLET_PHONE", "platform"),
		Currency:            GetEnv("CURRENCY", "UGX"),
		Airtel: ProviderConfig{
			Name:          "airtel",
			BaseURL:       GetEnv("AIRTEL_BASE_URL", "https://openapiuat.airtel.africa"),
			ClientID:      GetEnv("AIRTEL_CLIENT_ID", ""),
			ClientSecret:  GetEnv("AIRTEL_CLIENT_SECRET", ""),
			Country:       GetEnv("AIRTEL_COUNTRY", "UG"),
			Currency:      GetEnv("AIRTEL_CURRENCY", "UGX"),
			WebhookSecret: GetEnv("AIRTEL_WEBHOOK_SECRET", ""),
			TokenMargin:   GetDurationEnv("AIRTEL_TOKEN_MARGIN", 60*time.Second),
			Timeout:       GetDurationEnv("AIRTEL_TIMEOUT", 30*time.Second),
		},
		MTN: ProviderConfig{
			Name:              "mtn",
			BaseURL:           GetEnv("MTN_BASE_URL", "https://sandbox.momodeveloper.mtn.com"),
			ClientID:          GetEnv("MTN_API_USER", ""),
			ClientSecret:      GetEnv("MTN_API_KEY", ""),
			SubscriptionKey:   GetEnv("MTN_SUBSCRIPTION_KEY", ""),
			TargetEnvironment: GetEnv("MTN_TARGET_ENVIRONMENT", "sandbox"),
			Currency:          GetEnv("MTN_CURRENCY", "EUR"),
			TokenMargin:       GetDurationEnv("MTN_TOKEN_MARGIN", 60*time.Second),
			Timeout:           GetDurationEnv("MTN_TIMEOUT", 30*time.Second),
		},
		Iotec: ProviderConfig{
			Name:          "iotec",
			BaseURL:       GetEnv("IOTEC_BASE_URL", "https://pay.iotec.io/api"),
			TokenURL:      GetEnv("IOTEC_TOKEN_URL", "https://id.iotec.io/connect/token"),
			ClientID:      GetEnv("IOTEC_CLIENT_ID", ""),
			ClientSecret:  GetEnv("IOTEC_CLIENT_SECRET", ""),
			Currency:      GetEnv("IOTEC_CURRENCY", "UGX"),
			WalletID:      GetEnv("IOTEC_WALLET_ID", ""),
			WebhookSecret: GetEnv("IOTEC_WEBHOOK_SECRET", ""),
			TokenMargin:   GetDurationEnv("IOTEC_TOKEN_MARGIN", 30*time.Second),
			Timeout:       GetDurationEnv("IOTEC_TIMEOUT", 30*time.Second),
		},
		PrimaryProvider:      strings.ToLower(GetEnv("PRIMARY_PROVIDER", "airtel")),
		SecondaryProvider:    strings.ToLower(GetEnv("SECONDARY_PROVIDER", "mtn")),
		DisbursementProvider: strings.ToLower(GetEnv("DISBURSEMENT_PROVIDER", "iotec")),
		Voucher: VoucherConfig{
			ServerURL:    GetEnv("MAIN_SERVER_URL", "http://localhost:8080"),
			HandoffWait:  GetDurationEnv("VOUCHER_WAIT", 60*time.Second),
			HandoffPoll:  GetDurationEnv("VOUCHER_POLL_INTERVAL", 2*time.Second),
			DeliveredTTL: GetDurationEnv("VOUCHER_DELIVERED_TTL", 30*time.Second),
		},
		Withdrawal: WithdrawalConfig{
			Charge:  GetInt64Env("WITHDRAWAL_CHARGE", 1000),
			Minimum: GetInt64Env("WITHDRAWAL_MINIMUM", 10000),
		},
		ReconcileInterval: GetDurationEnv("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileAge:      GetDurationEnv("RECONCILE_AGE", 10*time.Minute),
		AllowOrigins:      GetEnv("CORS_ALLOW_ORIGINS", "*"),
		CollectRateLimit:  GetIntEnv("COLLECT_RATE_LIMIT", 30),
		CollectMaxAmount:  GetInt64Env("COLLECT_MAX_AMOUNT", 500000),
	}
	cfg.DisbursementWebhookSecret = GetEnv("DISBURSEMENT_WEBHOOK_SECRET", cfg.Iotec.WebhookSecret)
	return cfg
}

// Provider returns the configuration for a named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch strings.ToLower(name) {
	case "airtel":
		return c.Airtel, true
	case "mtn":
		return c.MTN, true
	case "iotec":
		return c.Iotec, true
	}
	return ProviderConfig{}, false
}
