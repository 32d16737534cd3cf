// Package config loads application configuration from file and environment.
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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Merge  MergeConfig  `yaml:"merge" mapstructure:"merge"`
	Phone  PhoneConfig  `yaml:"phone" mapstructure:"phone"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	RunLog RunLogConfig `yaml:"runlog" mapstructure:"runlog"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MergeConfig configures the identity resolution and cascade run.
type MergeConfig struct {
	// IdentifierPattern classifies a customer identifier as authoritative.
	IdentifierPattern string `yaml:"identifier_pattern" mapstructure:"identifier_pattern"`
	// BatchSize bounds each bulk foreign-key rewrite.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	// CandidateBatchSize groups merge candidates between pacing waits.
	CandidateBatchSize int `yaml:"candidate_batch_size" mapstructure:"candidate_batch_size"`
	// BatchDelayMS is the optional pause between candidate batches.
	BatchDelayMS int    `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	ReportDir    string `yaml:"report_dir" mapstructure:"report_dir"`
}

// PhoneConfig configures phone number normalization.
type PhoneConfig struct {
	CountryCode    string `yaml:"country_code" mapstructure:"country_code"`
	NationalLength int    `yaml:"national_length" mapstructure:"national_length"`
}

// EnrichConfig configures the gap-filling contact import.
type EnrichConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SkipRows  int    `yaml:"skip_rows" mapstructure:"skip_rows"`
}

// RunLogConfig configures the local run history database.
type RunLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("CRMMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("merge.identifier_pattern", `^[A-Z][0-9]{4}$`)
	v.SetDefault("merge.batch_size", 500)
	v.SetDefault("merge.candidate_batch_size", 50)
	v.SetDefault("merge.batch_delay_ms", 0)
	v.SetDefault("merge.report_dir", "reports")
	v.SetDefault("phone.country_code", "33")
	v.SetDefault("phone.national_length", 9)
	v.SetDefault("enrich.skip_rows", 1)
	v.SetDefault("runlog.path", "merge-runs.db")
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
