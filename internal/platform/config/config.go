package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	DBMaxConns     int32
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StoreDriver    string
	MigrationsPath string

	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	RateLimit          string
	WebhookRateLimit   string

	LockWaitTimeout time.Duration
	AssetScale      int32

	DefaultGateway       string
	GatewayBaseURL       string
	GatewayAPIKey        string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration

	RateSourceURL       string
	StaticRates         string
	RateMaxAge          time.Duration
	RateGracePeriod     time.Duration
	RateHotPairs        []string
	RateRefreshInterval time.Duration
	RateRecentWindow    time.Duration

	RedisURL string

	KafkaBrokers    []string
	KafkaEntryTopic string

	NATSURL                 string
	NATSNotificationSubject string
	NATSStream              string
	NATSDurable             string

	ReconcilePollInterval time.Duration
	ReconcilePendingAfter time.Duration
	ReconcileExpireAfter  time.Duration
	ReconcileBatchSize    int
}

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func setDefaults() {
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("DB_MAX_CONNS", 0)
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "exchange-ledger")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("WEBHOOK_RATE_LIMIT", "600-M")
	viper.SetDefault("LOCK_WAIT_TIMEOUT", "2s")
	viper.SetDefault("ASSET_SCALE", 8)
	viper.SetDefault("DEFAULT_GATEWAY", "paygate")
	viper.SetDefault("GATEWAY_BASE_URL", "")
	viper.SetDefault("GATEWAY_API_KEY", "")
	viper.SetDefault("GATEWAY_WEBHOOK_SECRET", "")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("RATE_SOURCE_URL", "")
	viper.SetDefault("STATIC_RATES", "")
	viper.SetDefault("RATE_MAX_AGE", "30s")
	viper.SetDefault("RATE_GRACE_PERIOD", "30s")
	viper.SetDefault("RATE_HOT_PAIRS", "")
	viper.SetDefault("RATE_REFRESH_INTERVAL", "15s")
	viper.SetDefault("RATE_RECENT_WINDOW", "10m")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_ENTRY_TOPIC", "ledger.entries")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("NATS_NOTIFICATION_SUBJECT", "ledger.notifications")
	viper.SetDefault("NATS_STREAM", "LEDGER_NOTIFICATIONS")
	viper.SetDefault("NATS_DURABLE", "reconciliation-worker")
	viper.SetDefault("RECONCILE_POLL_INTERVAL", "1m")
	viper.SetDefault("RECONCILE_PENDING_AFTER", "5m")
	viper.SetDefault("RECONCILE_EXPIRE_AFTER", "0s")
	viper.SetDefault("RECONCILE_BATCH_SIZE", 100)
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	setDefaults()
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.DBMaxConns = viper.GetInt32("DB_MAX_CONNS")
	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.StoreDriver = strings.ToLower(viper.GetString("STORE_DRIVER"))
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		log.Printf("Warning: Invalid value for STORE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StoreDriver, StoreDriverPostgres)
		cfg.StoreDriver = StoreDriverPostgres
	}
	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" || cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.WebhookRateLimit = viper.GetString("WEBHOOK_RATE_LIMIT")

	cfg.LockWaitTimeout = durationOrDefault("LOCK_WAIT_TIMEOUT", 2*time.Second)
	cfg.AssetScale = int32(viper.GetInt("ASSET_SCALE"))
	if cfg.AssetScale < 0 || cfg.AssetScale > 18 {
		log.Printf("Warning: Invalid value for ASSET_SCALE (%d). Defaulting to 8.\n", cfg.AssetScale)
		cfg.AssetScale = 8
	}

	cfg.DefaultGateway = strings.TrimSpace(viper.GetString("DEFAULT_GATEWAY"))
	cfg.GatewayBaseURL = viper.GetString("GATEWAY_BASE_URL")
	cfg.GatewayAPIKey = viper.GetString("GATEWAY_API_KEY")
	cfg.GatewayWebhookSecret = viper.GetString("GATEWAY_WEBHOOK_SECRET")
	if cfg.GatewayWebhookSecret == "" {
		log.Println("Warning: GATEWAY_WEBHOOK_SECRET not set. Every gateway notification will be rejected as untrusted.")
	}
	cfg.GatewayTimeout = durationOrDefault("GATEWAY_TIMEOUT", 10*time.Second)

	cfg.RateSourceURL = viper.GetString("RATE_SOURCE_URL")
	cfg.StaticRates = viper.GetString("STATIC_RATES")
	if cfg.RateSourceURL == "" && cfg.StaticRates == "" {
		log.Println("Warning: neither RATE_SOURCE_URL nor STATIC_RATES set. Exchanges will fail with rate unavailable.")
	}
	cfg.RateMaxAge = durationOrDefault("RATE_MAX_AGE", 30*time.Second)
	cfg.RateGracePeriod = durationOrDefault("RATE_GRACE_PERIOD", 30*time.Second)
	cfg.RateHotPairs = splitList(viper.GetString("RATE_HOT_PAIRS"))
	cfg.RateRefreshInterval = durationOrDefault("RATE_REFRESH_INTERVAL", 15*time.Second)
	cfg.RateRecentWindow = durationOrDefault("RATE_RECENT_WINDOW", 10*time.Minute)

	cfg.RedisURL = viper.GetString("REDIS_URL")

	cfg.KafkaBrokers = splitList(viper.GetString("KAFKA_BROKERS"))
	cfg.KafkaEntryTopic = viper.GetString("KAFKA_ENTRY_TOPIC")

	cfg.NATSURL = viper.GetString("NATS_URL")
	cfg.NATSNotificationSubject = viper.GetString("NATS_NOTIFICATION_SUBJECT")
	cfg.NATSStream = viper.GetString("NATS_STREAM")
	cfg.NATSDurable = viper.GetString("NATS_DURABLE")

	cfg.ReconcilePollInterval = durationOrDefault("RECONCILE_POLL_INTERVAL", time.Minute)
	cfg.ReconcilePendingAfter = durationOrDefault("RECONCILE_PENDING_AFTER", 5*time.Minute)
	cfg.ReconcileExpireAfter = durationOrDefault("RECONCILE_EXPIRE_AFTER", 0)
	cfg.ReconcileBatchSize = viper.GetInt("RECONCILE_BATCH_SIZE")
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 100
	}

	return cfg, nil
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
