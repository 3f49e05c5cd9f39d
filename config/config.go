package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	HTTP         ServerConfig
	MySQL        MySQLConfig
	Log          LogConfig
	Entitlements EntitlementsConfig
	Audit        AuditConfig
	Jobs         JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
	BaseURL     string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type EntitlementsConfig struct {
	CommitTimeout     time.Duration
	StoreMaxAttempts  int32
	StoreRetryBackoff time.Duration
	CasMaxAttempts    int32
}

type AuditConfig struct {
	WebhookURL    string
	MaxAttempts   int32
	RetryInterval time.Duration
	HTTPTimeout   time.Duration
	JobBatchSize  int32
}

type JobsConfig struct {
	AuditDispatchInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "entitlements-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
			BaseURL:     getEnv("APP_BASE_URL", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Entitlements: EntitlementsConfig{
			CommitTimeout:     getSecondsEnv("ENTITLEMENTS_COMMIT_TIMEOUT_SECONDS", 5*time.Second),
			StoreMaxAttempts:  int32(getIntEnv("ENTITLEMENTS_STORE_MAX_ATTEMPTS", 3)),
			StoreRetryBackoff: getMillisEnv("ENTITLEMENTS_STORE_RETRY_BACKOFF_MS", 50*time.Millisecond),
			CasMaxAttempts:    int32(getIntEnv("ENTITLEMENTS_CAS_MAX_ATTEMPTS", 3)),
		},
		Audit: AuditConfig{
			WebhookURL:    getEnv("AUDIT_WEBHOOK_URL", ""),
			MaxAttempts:   int32(getIntEnv("AUDIT_MAX_ATTEMPTS", 10)),
			RetryInterval: getMinutesEnv("AUDIT_RETRY_INTERVAL_MINUTES", 5*time.Minute),
			HTTPTimeout:   getSecondsEnv("AUDIT_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			JobBatchSize:  int32(getIntEnv("AUDIT_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			AuditDispatchInterval: getMinutesEnv("AUDIT_DISPATCH_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
