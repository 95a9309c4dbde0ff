package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/sentiment-cli/internal/wordcloud"
)

// Config holds the full application configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" mapstructure:"service"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServiceConfig configures the remote analysis service client.
type ServiceConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TextTransport string  `yaml:"text_transport" mapstructure:"text_transport"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// BatchConfig configures line-by-line upload analysis.
type BatchConfig struct {
	MaxLines       int `yaml:"max_lines" mapstructure:"max_lines"`
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// StoreConfig configures the in-session result store.
type StoreConfig struct {
	DemoPolicy string `yaml:"demo_policy" mapstructure:"demo_policy"`
	CloudSize  int    `yaml:"cloud_size" mapstructure:"cloud_size"`
}

// ServerConfig configures the local dev analysis service.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	// Local overrides; a missing .env is fine.
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SENTIMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("service.base_url", "http://127.0.0.1:8000")
	v.SetDefault("service.timeout_secs", 0)
	v.SetDefault("service.text_transport", "json")
	v.SetDefault("service.rate_limit", 0)
	v.SetDefault("batch.max_lines", 50)
	v.SetDefault("batch.max_concurrency", 8)
	v.SetDefault("store.demo_policy", "replace")
	v.SetDefault("store.cloud_size", 60)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the settings a command mode depends on. Modes are
// "client" (commands that call the analysis service) and "devserver".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "client":
		if c.Service.BaseURL == "" {
			errs = append(errs, "service.base_url is required")
		} else if u, err := url.Parse(c.Service.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "service.base_url must be an absolute URL")
		}
		switch c.Service.TextTransport {
		case "json", "file":
		default:
			errs = append(errs, "service.text_transport must be json or file")
		}
		if c.Service.TimeoutSecs < 0 {
			errs = append(errs, "service.timeout_secs must be >= 0")
		}
		if c.Service.RateLimit < 0 {
			errs = append(errs, "service.rate_limit must be >= 0")
		}
		if c.Batch.MaxLines <= 0 {
			errs = append(errs, "batch.max_lines must be > 0")
		}
		if c.Batch.MaxConcurrency <= 0 {
			errs = append(errs, "batch.max_concurrency must be > 0")
		}
		switch c.Store.DemoPolicy {
		case "replace", "merge":
		default:
			errs = append(errs, "store.demo_policy must be replace or merge")
		}
		if c.Store.CloudSize <= 0 || c.Store.CloudSize > wordcloud.MaxTerms {
			errs = append(errs, fmt.Sprintf("store.cloud_size must be between 1 and %d", wordcloud.MaxTerms))
		}
	case "devserver":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
