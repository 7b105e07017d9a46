package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Job104     Job104Config     `yaml:"job104" mapstructure:"job104"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Radar      RadarConfig      `yaml:"radar" mapstructure:"radar"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	SearchDepth string `yaml:"search_depth" mapstructure:"search_depth"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// Job104Config holds the 104 job bank endpoint.
type Job104Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// LLMConfig controls provider routing for summary translation.
type LLMConfig struct {
	ProviderOrder   string `yaml:"provider_order" mapstructure:"provider_order"`
	TranslateLocale string `yaml:"translate_locale" mapstructure:"translate_locale"`
}

// Providers returns the configured provider order, upper-cased.
func (c LLMConfig) Providers() []string {
	var out []string
	for _, p := range strings.Split(c.ProviderOrder, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SearchConfig configures the search gateway.
type SearchConfig struct {
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	FallbackProvider        string  `yaml:"fallback_provider" mapstructure:"fallback_provider"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// RadarConfig configures the signal scan.
type RadarConfig struct {
	SourceAllowlist     string `yaml:"source_allowlist" mapstructure:"source_allowlist"`
	DefaultLookbackDays int    `yaml:"default_lookback_days" mapstructure:"default_lookback_days"`
	DefaultMaxResults   int    `yaml:"default_max_results" mapstructure:"default_max_results"`
	MinCandidatePool    int    `yaml:"min_candidate_pool" mapstructure:"min_candidate_pool"`
}

// Allowlist parses the comma-separated allow-list into lower-case hosts.
func (c RadarConfig) Allowlist() []string {
	var out []string
	for _, item := range strings.Split(c.SourceAllowlist, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	TavilyPerCredit    float64                 `yaml:"tavily_per_credit" mapstructure:"tavily_per_credit"`
	JinaPerMTok        float64                 `yaml:"jina_per_mtok" mapstructure:"jina_per_mtok"`
	PerplexityPerQuery float64                 `yaml:"perplexity_per_query" mapstructure:"perplexity_per_query"`
	Anthropic          map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini             map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSourceAllowlist is the news/job-board allow-list used when none is configured.
const DefaultSourceAllowlist = "reuters.com,bloomberg.com,businesswire.com,prnewswire.com,globenewswire.com," +
	"digitimes.com,digitimes.com.tw,cnyes.com,moneydj.com,ctee.com.tw,technews.tw," +
	"udn.com,money.udn.com,eettaiwan.com,36kr.com,nikkei.com,wsj.com,ft.com,yahoo.com," +
	"investing.com,seekingalpha.com,techcrunch.com,theverge.com,linkedin.com,104.com.tw,jobs.104.com.tw"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"tavily.key", "jina.key", "anthropic.key", "gemini.key", "perplexity.key", "search.fallback_provider"} {
		// Keys without defaults are invisible to Unmarshal unless bound.
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "radar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.search_depth", "advanced")
	v.SetDefault("tavily.timeout_secs", 30)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("job104.base_url", "https://www.104.com.tw")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("llm.provider_order", "GEMINI,ANTHROPIC,PERPLEXITY")
	v.SetDefault("llm.translate_locale", "zh-TW")
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("search.circuit_failure_threshold", 4)
	v.SetDefault("search.circuit_reset_secs", 60)
	v.SetDefault("radar.source_allowlist", DefaultSourceAllowlist)
	v.SetDefault("radar.default_lookback_days", 90)
	v.SetDefault("radar.default_max_results", 8)
	v.SetDefault("radar.min_candidate_pool", 12)
	v.SetDefault("pricing.tavily_per_credit", 0.008)
	v.SetDefault("pricing.jina_per_mtok", 0.02)
	v.SetDefault("pricing.perplexity_per_query", 0.005)

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

// Validate checks that the settings a command mode depends on are present.
// A missing search key is not reported here: the scanner surfaces it as a
// configuration error when a scan actually starts.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres (RADAR_STORE_DATABASE_URL)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch c.Search.FallbackProvider {
	case "", "jina":
	default:
		errs = append(errs, fmt.Sprintf("search.fallback_provider must be empty or jina, got %q", c.Search.FallbackProvider))
	}

	switch mode {
	case "scan":
		if c.Radar.DefaultLookbackDays < 1 || c.Radar.DefaultLookbackDays > 365 {
			errs = append(errs, fmt.Sprintf("radar.default_lookback_days must be 1-365, got %d", c.Radar.DefaultLookbackDays))
		}
		if c.Radar.DefaultMaxResults < 1 || c.Radar.DefaultMaxResults > 20 {
			errs = append(errs, fmt.Sprintf("radar.default_max_results must be 1-20, got %d", c.Radar.DefaultMaxResults))
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "store":
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
