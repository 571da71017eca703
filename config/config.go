package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/advwell/pkg/validation"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"advwell-api"`
	AppVersion                    string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000" validate:"gt=0"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"60"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Postgres connection string
	DatabaseURL string `env:"DATABASE_URL" env-default:"" validate:"required"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version, 0 migrates to latest
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	// Run migrations when the server starts
	DatabaseMigrateOnStart bool `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Auth Enabled - when false, identity comes from X-Company-ID, X-User-ID and X-User-Role
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// OIDC issuer URL
	AuthIssuerURL string `env:"OIDC_ISSUER_URL" env-default:""`
	// OIDC client ID
	AuthClientID string `env:"OIDC_CLIENT_ID" env-default:""`

	// Redis connection URL
	RedisURL string `env:"REDIS_URL" env-default:"redis://localhost:6379/0" validate:"required"`

	// Kafka brokers (comma-separated)
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Topic for case.synced events
	KafkaCaseSyncedTopic string `env:"KAFKA_CASE_SYNCED_TOPIC" env-default:"case.synced"`
	// Disable to skip event publishing entirely
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"true"`

	// DataJud public API
	DatajudBaseURL string `env:"DATAJUD_BASE_URL" env-default:"https://api-publica.datajud.cnj.jus.br" validate:"required,url"`
	DatajudAPIKey  string `env:"DATAJUD_API_KEY" env-default:""`
	// Tribunals in precedence order
	DatajudTribunals []string `env:"DATAJUD_TRIBUNALS" env-default:"tjrj,tjsp,tjmg,trf1,trf2,trf3,trf4,trf5" validate:"min=1"`
	// Query every tribunal concurrently instead of walking the list
	DatajudParallel bool `env:"DATAJUD_PARALLEL" env-default:"false"`
	// Per-tribunal request timeout
	DatajudTimeout time.Duration `env:"DATAJUD_TIMEOUT" env-default:"15s"`
	// Per-tribunal request budget shared across replicas
	DatajudRateLimitRequests int64         `env:"DATAJUD_RATE_LIMIT_REQUESTS" env-default:"60"`
	DatajudRateLimitWindow   time.Duration `env:"DATAJUD_RATE_LIMIT_WINDOW" env-default:"1m"`
	DatajudRateLimitMaxWait  time.Duration `env:"DATAJUD_RATE_LIMIT_MAX_WAIT" env-default:"30s"`

	// TTL of the per-case sync lock
	CaseSyncLockTTL time.Duration `env:"CASE_SYNC_LOCK_TTL" env-default:"7m"`

	// Sweep settings
	// Enable/disable the daily sweep
	SweepEnabled bool `env:"SWEEP_ENABLED" env-default:"true"`
	// Local hour the sweep runs at
	SweepHour int `env:"SWEEP_HOUR" env-default:"2" validate:"gte=0,lte=23"`
	// Concurrent case syncs during a sweep
	SweepWorkers int `env:"SWEEP_WORKERS" env-default:"4" validate:"gte=1"`
	// Timezone SWEEP_HOUR is read in
	SweepTimezone string `env:"SWEEP_TIMEZONE" env-default:"America/Sao_Paulo"`
	// How often the scheduler checks whether the sweep is due
	SweepPollInterval time.Duration `env:"SWEEP_POLL_INTERVAL" env-default:"1m"`
	// TTL of the sweep leader lock
	SweepLockTTL time.Duration `env:"SWEEP_LOCK_TTL" env-default:"1h"`

	// Tracing settings
	// Span exporter: grpc, http, console or none
	OTELExporter string `env:"OTEL_EXPORTER" env-default:"none" validate:"oneof=grpc http console none"`
	// OTLP collector endpoint
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	// Disable TLS for OTLP (for local development)
	OTELInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
}

// Load reads .env files (missing files are ignored) and the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()

	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("env")
		if key == "" {
			continue
		}
		v.SetDefault(key, field.Tag.Get("env-default"))
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
		func(dc *mapstructure.DecoderConfig) { dc.TagName = "env" },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if _, err := validation.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
