package eagerlimit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/syssam/eagerlimit/dialect"
	"github.com/syssam/eagerlimit/dialect/sql"
)

// Config is the connection configuration of a Client.
type Config struct {
	// Driver is the database/sql driver name, e.g. "pgx" or "sqlite".
	Driver string `mapstructure:"driver" yaml:"driver" validate:"required"`
	// DSN is the data source name passed to the driver.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// TablePrefix is applied to all table names.
	TablePrefix string `mapstructure:"table_prefix" yaml:"table_prefix,omitempty"`
	// WindowFunctions overrides the ROW_NUMBER support of the dialect
	// when set.
	WindowFunctions *bool `mapstructure:"window_functions" yaml:"window_functions,omitempty"`
	// Debug logs every statement at DEBUG level.
	Debug bool `mapstructure:"debug" yaml:"debug,omitempty"`
	// SlowThreshold logs statements slower than the threshold. Zero
	// disables statement statistics.
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold,omitempty" validate:"gte=0"`
	// Log configures the client logger.
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// configKeys are the keys bound to environment variables.
var configKeys = []string{
	"driver", "dsn", "table_prefix", "window_functions", "debug", "slow_threshold", "log.level", "log.format",
}

// LoadConfig reads the configuration from an optional YAML file and the
// environment. Variables are named by the upper-cased key with the prefix,
// e.g. EAGERLIMIT_DSN or EAGERLIMIT_LOG_LEVEL. The given env files are
// loaded first; without any, a .env file in the working directory is
// loaded when present. Variables already set are not overridden.
func LoadConfig(path, envPrefix string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("eagerlimit: load env: %w", err)
		}
	}
	v := viper.New()
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("eagerlimit: bind env %q: %w", k, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("eagerlimit: read config: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("eagerlimit: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Field failures are reported as
// ValidationErrors, collected in an AggregateError when more than one.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, f := range fields {
			errs = append(errs, NewValidationError(f.Namespace(), fmt.Errorf("failed on the %q rule", f.Tag())))
		}
	}
	if c.Driver != "" {
		if _, err := dialect.ParseFamily(c.Driver); err != nil {
			errs = append(errs, NewValidationError("Config.Driver", err))
		}
	}
	return NewAggregateError(errs...)
}

// Options returns the client options of the configuration.
func (c *Config) Options() []Option {
	opts := []Option{WithTablePrefix(c.TablePrefix)}
	if c.WindowFunctions != nil {
		opts = append(opts, WithWindowFunctions(*c.WindowFunctions))
	}
	return opts
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("eagerlimit: encode config: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a YAML configuration and validates it.
func ReadYAML(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("eagerlimit: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Open opens the configured database and returns a client. The driver
// is wrapped with statement statistics when a slow threshold is set, and
// with statement logging in debug mode.
func Open(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Log)
	return open(cfg, logger)
}

func open(cfg *Config, logger *slog.Logger) (*Client, error) {
	drv, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	var d dialect.Driver = drv
	if cfg.SlowThreshold > 0 {
		d = sql.NewStatsDriver(d, sql.WithSlowThreshold(cfg.SlowThreshold), sql.WithSlowQueryLog(logger))
	}
	if cfg.Debug {
		d = sql.NewDebugDriver(d, logger)
	}
	c, err := NewClient(d, append(cfg.Options(), WithLogger(logger))...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}
