package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const testModeEnv = "USERBOARD_TEST_MODE"

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production test"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120" validate:"min=1"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379" validate:"required,hostname_port"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true" validate:"required"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h" validate:"min=1m"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true" validate:"required"`

	UpstreamURL     string        `envconfig:"UPSTREAM_URL" default:"https://jsonplaceholder.typicode.com/users" validate:"required,url"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"0s" validate:"min=0s"`

	PageSize            int           `envconfig:"PAGE_SIZE" default:"10" validate:"min=1"`
	WidgetRenderWait    time.Duration `envconfig:"WIDGET_RENDER_WAIT" default:"2s" validate:"min=0s"`
	WidgetIdleTTL       time.Duration `envconfig:"WIDGET_IDLE_TTL" default:"30m" validate:"min=1s"`
	WidgetSweepInterval time.Duration `envconfig:"WIDGET_SWEEP_INTERVAL" default:"1m" validate:"min=1s"`

	OTELEndpoint    string `envconfig:"OTEL_ENDPOINT" validate:"omitempty,url"`
	OTELServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"userboard" validate:"required"`
}

// LoadConfig reads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether the binary should skip runtime side effects.
// The environment is read once.
func InTestMode() bool {
	return inTestMode()
}
