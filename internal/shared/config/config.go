package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Pluggy    PluggyConfig
	Session   SessionConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port         string   `env:"PORT" envDefault:"8080"`
	Host         string   `env:"HOST" envDefault:"0.0.0.0"`
	AllowedHosts []string `env:"ALLOWED_HOSTS"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST,required,notEmpty"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER,required,notEmpty"`
	Password string `env:"DB_PASSWORD,required,notEmpty"`
	DBName   string `env:"DB_NAME,required,notEmpty"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"require"`
}

type PluggyConfig struct {
	ClientID     string `env:"PLUGGY_CLIENT_ID,required,notEmpty"`
	ClientSecret string `env:"PLUGGY_CLIENT_SECRET,required,notEmpty"`
	BaseURL      string `env:"PLUGGY_BASE_URL" envDefault:"https://api.pluggy.ai"`
}

type SessionConfig struct {
	TTL time.Duration `env:"SESSION_TTL" envDefault:"30m"`
}

type TLSConfig struct {
	Enabled      bool   `env:"TLS_ENABLED" envDefault:"false"`
	CertPath     string `env:"TLS_CERT_PATH"`
	KeyPath      string `env:"TLS_KEY_PATH"`
	RedirectHTTP bool   `env:"TLS_REDIRECT_HTTP" envDefault:"false"`
}

type TelemetryConfig struct {
	Enabled      bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"financefly-connector"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"localhost:4317"`
	MetricsPort  string `env:"METRICS_PORT" envDefault:"9090"`
}

// ConfigurationError reports every missing or invalid setting at once,
// so a misconfigured deployment can be fixed in a single pass instead
// of one restart per variable.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, "; "))
	}
	return "configuration error (" + strings.Join(parts, "; ") + ")"
}

// Load reads configuration from the process environment. It has no
// side effects beyond reading environment state.
func Load() (*Config, error) {
	var cfg Config
	cfgErr := &ConfigurationError{}

	if err := env.Parse(&cfg); err != nil {
		collectEnvErrors(err, cfgErr)
	}

	// Cross-field validation, appended to the same error so the caller
	// sees every problem in one report.
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			cfgErr.Missing = append(cfgErr.Missing, "TLS_CERT_PATH")
		}
		if cfg.TLS.KeyPath == "" {
			cfgErr.Missing = append(cfgErr.Missing, "TLS_KEY_PATH")
		}
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return nil, cfgErr
	}
	return &cfg, nil
}

// collectEnvErrors unpacks the env library's aggregate error into key
// names, so the ConfigurationError lists every offending variable.
func collectEnvErrors(err error, out *ConfigurationError) {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		out.Invalid = append(out.Invalid, err.Error())
		return
	}

	for _, sub := range agg.Errors {
		var notSet env.VarIsNotSetError
		var empty env.EmptyVarError
		switch {
		case errors.As(sub, &notSet):
			out.Missing = append(out.Missing, notSet.Key)
		case errors.As(sub, &empty):
			out.Missing = append(out.Missing, empty.Key)
		default:
			out.Invalid = append(out.Invalid, sub.Error())
		}
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
