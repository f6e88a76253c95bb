package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Archive       ArchiveConfig       `yaml:"archive" mapstructure:"archive"`
	Authoritative AuthoritativeConfig `yaml:"authoritative" mapstructure:"authoritative"`
	Reconcile     ReconcileConfig     `yaml:"reconcile" mapstructure:"reconcile"`
	Review        ReviewConfig        `yaml:"review" mapstructure:"review"`
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	R2            R2Config            `yaml:"r2" mapstructure:"r2"`
	Report        ReportConfig        `yaml:"report" mapstructure:"report"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ArchiveConfig configures scraping of the program archive API.
type ArchiveConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	CurrentYear   int     `yaml:"current_year" mapstructure:"current_year"`
	Years         []int   `yaml:"years" mapstructure:"years"`
}

// AuthoritativeConfig locates the authoritative organization list.
type AuthoritativeConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
}

// ReconcileConfig tunes grouping and alignment.
type ReconcileConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	AlignThreshold float64 `yaml:"align_threshold" mapstructure:"align_threshold"`
	ReviewBelow    float64 `yaml:"review_below" mapstructure:"review_below"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	RulesPath      string  `yaml:"rules_path" mapstructure:"rules_path"`
}

// ReviewConfig configures LLM adjudication of low-confidence matches.
type ReviewConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	MaxConcurrent int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// R2Config holds Cloudflare R2 credentials for logo uploads.
type R2Config struct {
	AccountID       string `yaml:"account_id" mapstructure:"account_id"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	PublicURL       string `yaml:"public_url" mapstructure:"public_url"`
	LogosDir        string `yaml:"logos_dir" mapstructure:"logos_dir"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	TopN int    `yaml:"top_n" mapstructure:"top_n"`
}

// Endpoint returns the S3-compatible endpoint of the R2 account.
func (c R2Config) Endpoint() string {
	if c.AccountID == "" {
		return ""
	}
	return "https://" + c.AccountID + ".r2.cloudflarestorage.com"
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and GSOC_* environment variables.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GSOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gsoc-orgs.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("archive.base_url", "https://summerofcode.withgoogle.com")
	v.SetDefault("archive.user_agent", "gsoc-orgs/1.0")
	v.SetDefault("archive.timeout_secs", 18)
	v.SetDefault("archive.max_retries", 3)
	v.SetDefault("archive.rate_per_second", 1.25)
	v.SetDefault("archive.concurrency", 4)
	v.SetDefault("archive.current_year", 2025)
	v.SetDefault("archive.years", []int{})
	v.SetDefault("authoritative.url", "")
	v.SetDefault("authoritative.cache_path", "authoritative_orgs.json")
	v.SetDefault("reconcile.fuzzy_threshold", 90)
	v.SetDefault("reconcile.align_threshold", 0.88)
	v.SetDefault("reconcile.review_below", 0.95)
	v.SetDefault("reconcile.workers", 0)
	v.SetDefault("reconcile.rules_path", "")
	v.SetDefault("review.enabled", false)
	v.SetDefault("review.max_concurrent", 4)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("r2.account_id", "")
	v.SetDefault("r2.access_key_id", "")
	v.SetDefault("r2.secret_access_key", "")
	v.SetDefault("r2.bucket", "gsoc-logos")
	v.SetDefault("r2.public_url", "")
	v.SetDefault("r2.logos_dir", "logos")
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.top_n", 20)

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

// loadDotEnv loads path into the environment if it exists. Variables that
// are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return eris.Wrapf(err, "config: load %s", path)
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
