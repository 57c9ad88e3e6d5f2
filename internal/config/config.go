package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Trust     TrustConfig     `yaml:"trust" mapstructure:"trust"`
	Recompute RecomputeConfig `yaml:"recompute" mapstructure:"recompute"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// TrustConfig tunes the dispute lifecycle and identity capabilities.
type TrustConfig struct {
	// ReviewThreshold is the net upvote count that moves an open
	// dispute into review.
	ReviewThreshold int `yaml:"review_threshold" mapstructure:"review_threshold"`
	// GracePeriodDays is how long the product creator holds the
	// exclusive provisional-edit right once a dispute enters review.
	GracePeriodDays int `yaml:"grace_period_days" mapstructure:"grace_period_days"`
	// AdminUsers lists user ids that carry the admin capability.
	AdminUsers []string `yaml:"admin_users" mapstructure:"admin_users"`
}

// RecomputeConfig configures batch confidence recomputation.
type RecomputeConfig struct {
	Workers   int     `yaml:"workers" mapstructure:"workers"`
	PerSecond float64 `yaml:"per_second" mapstructure:"per_second"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("trust.review_threshold", 5)
	v.SetDefault("trust.grace_period_days", 7)
	v.SetDefault("recompute.workers", 4)
	v.SetDefault("recompute.per_second", 50)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed for the given mode. Modes
// group commands by the resources they touch: "store" for anything that
// opens the database, "serve" additionally needs a listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver (TRUST_STORE_DATABASE_URL)")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "serve":
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode: %s", mode)
	}

	if c.Trust.ReviewThreshold < 1 {
		problems = append(problems, "trust.review_threshold must be >= 1")
	}
	if c.Trust.GracePeriodDays < 1 {
		problems = append(problems, "trust.grace_period_days must be >= 1")
	}
	if c.Recompute.Workers < 1 || c.Recompute.Workers > 64 {
		problems = append(problems, "recompute.workers must be between 1 and 64")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
