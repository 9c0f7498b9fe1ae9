package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// Env selects error detail and log format; only "development" exposes internals.
	Env string `envconfig:"APP_ENV" default:"production"`

	// HTTP
	HTTPAddr        string        `envconfig:"BOOKING_HTTP_ADDR" default:":8080"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// DB
	PGBookingDSN   string `envconfig:"PG_BOOKING_DSN" required:"true"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`

	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// RabbitMQ; empty URL disables publishing and the payment consumer
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentQueue    string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`

	// Redis; empty address falls back to an in-process idempotency store
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	OTLPEndpoint  string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AuditInterval time.Duration `envconfig:"AUDIT_INTERVAL" default:"5m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, err
	}
	var c App
	err := envconfig.Process("", &c)
	return c, err
}

func (a App) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

func (a App) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}
