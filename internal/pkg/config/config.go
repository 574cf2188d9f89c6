package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Notify    NotifyConfig
	AMQP      AMQPConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	WS        WSConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Europe/London"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Europe/London"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret              string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenDuration string `envconfig:"JWT_ACCESS_TOKEN_DURATION" default:"24h"`
}

// Outbox relay and best-effort push settings
type NotifyConfig struct {
	Timeout        time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"3s"`
	PushMessages   bool          `envconfig:"NOTIFY_PUSH_MESSAGES" default:"true"`
	RelayInterval  time.Duration `envconfig:"NOTIFY_RELAY_INTERVAL" default:"2s"`
	RelayBatchSize int           `envconfig:"NOTIFY_RELAY_BATCH_SIZE" default:"50"`
	MaxAttempts    int           `envconfig:"NOTIFY_MAX_ATTEMPTS" default:"5"`
	RetryBase      time.Duration `envconfig:"NOTIFY_RETRY_BASE" default:"5s"`
}

// Empty URL switches the relay to a logging publisher
type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`
}

type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"tutor-booking"`
	Environment string `envconfig:"ENV" default:"dev"`
}

type RateLimitConfig struct {
	PerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
	Burst     int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	IdleTTL   time.Duration `envconfig:"RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type WSConfig struct {
	OriginPatterns     []string `envconfig:"WS_ORIGIN_PATTERNS" default:"localhost:3000"`
	InsecureSkipVerify bool     `envconfig:"WS_INSECURE_SKIP_VERIFY" default:"false"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Europe/London",
			MaxConns: 20,
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "Europe/London",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret:              "test-secret-key-for-e2e-only",
			AccessTokenDuration: "1h",
		},
		Notify: NotifyConfig{
			Timeout:        time.Second,
			PushMessages:   true,
			RelayInterval:  100 * time.Millisecond,
			RelayBatchSize: 10,
			MaxAttempts:    3,
			RetryBase:      100 * time.Millisecond,
		},
		AMQP: AMQPConfig{
			Exchange: "booking.events.test",
		},
		Tracing: TracingConfig{
			ServiceName: "tutor-booking-test",
			Environment: "test",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 600,
			Burst:     100,
			IdleTTL:   time.Minute,
		},
		WS: WSConfig{
			InsecureSkipVerify: true,
		},
	}
}
