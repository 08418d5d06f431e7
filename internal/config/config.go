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
	Graph     GraphConfig     `yaml:"graph" mapstructure:"graph"`
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the relational database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GraphConfig holds Neo4j connection settings.
type GraphConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// TavilyConfig holds Tavily web search API settings.
type TavilyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	SearchDepth string `yaml:"search_depth" mapstructure:"search_depth"`
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RetrievalConfig configures candidate retrieval defaults.
type RetrievalConfig struct {
	DefaultLimit  int  `yaml:"default_limit" mapstructure:"default_limit"`
	IncludeDrafts bool `yaml:"include_drafts" mapstructure:"include_drafts"`
}

// EnrichConfig configures the enrichment and refresh batch jobs.
type EnrichConfig struct {
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
	RefreshDays   int `yaml:"refresh_days" mapstructure:"refresh_days"`
	BudgetMinutes int `yaml:"budget_minutes" mapstructure:"budget_minutes"`
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
	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys get empty defaults so AutomaticEnv can bind
	// them without a config file entry.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("tavily.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.search_depth", "basic")
	v.SetDefault("tavily.max_results", 5)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("retrieval.default_limit", 20)
	v.SetDefault("retrieval.include_drafts", true)
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.refresh_days", 90)
	v.SetDefault("enrich.budget_minutes", 10)

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
