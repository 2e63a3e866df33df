package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
	Import      ImportConfig
	Orders      OrdersConfig
	Idempotency IdempotencyConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace time.Duration
}

// StorageDriver selects the persistence backend.
type StorageDriver string

const (
	StoragePostgres StorageDriver = "postgres"
	StorageMemory   StorageDriver = "memory"
)

type DatabaseConfig struct {
	Driver         StorageDriver
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	ImportedTopic  string
	CancelledTopic string
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ImportConfig names the feed imported when a request carries no body. URL wins over Path.
type ImportConfig struct {
	FeedPath     string
	FeedURL      string
	FetchTimeout time.Duration
}

type OrdersConfig struct {
	CancelAllowRepeat bool
}

type IdempotencyConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

const (
	defaultHTTPPort         = 8080
	defaultMetricsPath      = "/metrics"
	defaultShutdownGrace    = 15 * time.Second
	defaultStorageDriver    = StoragePostgres
	defaultMigrationsPath   = "migrations"
	defaultAutoMigrate      = true
	defaultImportedTopic    = "orders.imported"
	defaultCancelledTopic   = "orders.cancelled"
	defaultServiceName      = "orderdesk-api"
	defaultServiceVersion   = "0.1.0"
	defaultEnvironment      = "development"
	defaultLogLevel         = "info"
	defaultOTelSampleRate   = 1.0
	defaultFeedPath         = "assets/orders.json"
	defaultFetchTimeout     = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultIdempotencySweep = 10 * time.Minute
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	kafkaCfg, err := loadKafkaConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kafka config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	importCfg, err := loadImportConfig()
	if err != nil {
		return nil, fmt.Errorf("loading import config: %w", err)
	}

	idemCfg, err := loadIdempotencyConfig()
	if err != nil {
		return nil, fmt.Errorf("loading idempotency config: %w", err)
	}

	return &Config{
		HTTP:        httpCfg,
		Database:    dbCfg,
		Kafka:       kafkaCfg,
		Telemetry:   telCfg,
		Service:     loadServiceConfig(),
		Import:      importCfg,
		Orders:      OrdersConfig{CancelAllowRepeat: getBoolEnv("CANCEL_ALLOW_REPEAT", true)},
		Idempotency: idemCfg,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value := os.Getenv("API_HTTP_PORT"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value := os.Getenv("API_SHUTDOWN_GRACE_SECONDS"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = time.Duration(parsed) * time.Second
	}

	return HTTPConfig{
		Port:          port,
		MetricsPath:   getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := StorageDriver(strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", string(defaultStorageDriver))))
	if driver != StoragePostgres && driver != StorageMemory {
		return DatabaseConfig{}, fmt.Errorf("invalid STORAGE_DRIVER %q: want postgres or memory", driver)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return DatabaseConfig{
		Driver:         driver,
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}, nil
}

func loadKafkaConfig() (KafkaConfig, error) {
	var brokers []string
	if value := os.Getenv("KAFKA_BROKERS"); value != "" {
		for _, broker := range strings.Split(value, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	enabled := getBoolEnv("KAFKA_ENABLED", false)
	if enabled && len(brokers) == 0 {
		return KafkaConfig{}, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return KafkaConfig{
		Enabled:        enabled,
		Brokers:        brokers,
		ImportedTopic:  getEnvOrDefault("KAFKA_TOPIC_ORDERS_IMPORTED", defaultImportedTopic),
		CancelledTopic: getEnvOrDefault("KAFKA_TOPIC_ORDERS_CANCELLED", defaultCancelledTopic),
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value := os.Getenv("OTEL_SAMPLE_RATE"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	endpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	return TelemetryConfig{
		LogLevel:     getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint: endpoint,
		// Tracing has nowhere to go without a collector.
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", endpoint != ""),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func loadImportConfig() (ImportConfig, error) {
	timeout, err := getDurationEnv("IMPORT_FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		return ImportConfig{}, err
	}

	return ImportConfig{
		FeedPath:     getEnvOrDefault("IMPORT_FEED_PATH", defaultFeedPath),
		FeedURL:      os.Getenv("IMPORT_FEED_URL"),
		FetchTimeout: timeout,
	}, nil
}

func loadIdempotencyConfig() (IdempotencyConfig, error) {
	ttl, err := getDurationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	sweep, err := getDurationEnv("IDEMPOTENCY_SWEEP_INTERVAL", defaultIdempotencySweep)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	return IdempotencyConfig{TTL: ttl, SweepInterval: sweep}, nil
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "orderdesk")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return parsed, nil
}
