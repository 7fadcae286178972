package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultSymbol 未指定股票代码时使用
const DefaultSymbol = "PLTR"

// DefaultPath 默认配置文件路径
const DefaultPath = "configs/config.yaml"

// Config 项目配置结构体
type Config struct {
	Symbol      string            `yaml:"symbol" toml:"symbol"`
	AsOf        string            `yaml:"as_of" toml:"as_of" validate:"omitempty,datetime=2006-01-02"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	Search      SearchConfig      `yaml:"search" toml:"search"`
	Sentiment   SentimentConfig   `yaml:"sentiment" toml:"sentiment"`
	Market      MarketConfig      `yaml:"market" toml:"market"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" toml:"concurrency"`
	Output      OutputConfig      `yaml:"output" toml:"output"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider       string `yaml:"provider" toml:"provider" validate:"oneof=openai claude gemini"`
	BaseURL        string `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKey         string `yaml:"api_key" toml:"api_key"`
	FinancialModel string `yaml:"financial_model" toml:"financial_model" validate:"required"`
	SentimentModel string `yaml:"sentiment_model" toml:"sentiment_model" validate:"required"`
	Timeout        string `yaml:"timeout" toml:"timeout"`
	MaxRetries     int    `yaml:"max_retries" toml:"max_retries" validate:"gte=0,lte=5"`
	MaxTokens      int    `yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
	StrictTables   bool   `yaml:"strict_tables" toml:"strict_tables"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider     string        `yaml:"provider" toml:"provider" validate:"oneof=duckduckgo tavily searxng"`
	MaxResults   int           `yaml:"max_results" toml:"max_results" validate:"gte=1,lte=50"`
	FetchContent bool          `yaml:"fetch_content" toml:"fetch_content"`
	Timeout      string        `yaml:"timeout" toml:"timeout"`
	Tavily       TavilyConfig  `yaml:"tavily" toml:"tavily"`
	SearXNG      SearXNGConfig `yaml:"searxng" toml:"searxng"`
}

// SentimentConfig 情绪打分配置
type SentimentConfig struct {
	// vader / lexicon
	Scorer string `yaml:"scorer" toml:"scorer" validate:"oneof=vader lexicon"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Timeout int    `yaml:"timeout" toml:"timeout"`
}

// MarketConfig 行情数据配置
type MarketConfig struct {
	Provider        string `yaml:"provider" toml:"provider" validate:"oneof=yahoo mock"`
	HistoryPeriod   string `yaml:"history_period" toml:"history_period"`
	HistoryInterval string `yaml:"history_interval" toml:"history_interval"`
	NewsCount       int    `yaml:"news_count" toml:"news_count" validate:"gte=0,lte=50"`
	Timeout         string `yaml:"timeout" toml:"timeout"`
	Proxy           string `yaml:"proxy" toml:"proxy"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps" toml:"qps" validate:"gte=0"`
	RPM int `yaml:"rpm" toml:"rpm" validate:"gte=0"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	HTMLFile string `yaml:"html_file" toml:"html_file"`
}

// Default 返回带默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig 从指定路径加载配置，文件不存在时使用默认值
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s failed: %w", path, err)
		}
	case os.IsNotExist(err):
		// 只靠环境变量也能跑
	default:
		return nil, fmt.Errorf("read config %s failed: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STOCK_SYMBOL"); v != "" {
		c.Symbol = v
	}
	// LLM_API_KEY 优先于各服务商自己的 key
	if v := firstEnv("LLM_API_KEY", providerKeyEnv(c.LLM.Provider)); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.Search.Tavily.APIKey = v
	}
	if v := firstEnv("HTTPS_PROXY", "https_proxy"); v != "" && c.Market.Proxy == "" {
		c.Market.Proxy = v
	}
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "PERPLEXITY_API_KEY"
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = DefaultSymbol
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "openai" {
		c.LLM.BaseURL = "https://api.perplexity.ai"
	}
	if c.LLM.FinancialModel == "" {
		c.LLM.FinancialModel = defaultModel(c.LLM.Provider)
	}
	if c.LLM.SentimentModel == "" {
		c.LLM.SentimentModel = defaultModel(c.LLM.Provider)
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "120s"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.Search.Provider == "" {
		c.Search.Provider = "duckduckgo"
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}
	if c.Search.Timeout == "" {
		c.Search.Timeout = "30s"
	}
	if c.Sentiment.Scorer == "" {
		c.Sentiment.Scorer = "vader"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "yahoo"
	}
	if c.Market.HistoryPeriod == "" {
		c.Market.HistoryPeriod = "1y"
	}
	if c.Market.HistoryInterval == "" {
		c.Market.HistoryInterval = "1d"
	}
	if c.Market.NewsCount == 0 {
		c.Market.NewsCount = 8
	}
	if c.Market.Timeout == "" {
		c.Market.Timeout = "30s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 2
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "claude":
		return "claude-sonnet-4-5"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return "sonar"
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, d := range map[string]string{
		"llm.timeout":    c.LLM.Timeout,
		"search.timeout": c.Search.Timeout,
		"market.timeout": c.Market.Timeout,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	if c.Search.Provider == "searxng" && c.Search.SearXNG.BaseURL == "" {
		return fmt.Errorf("invalid config: searxng base url is missing")
	}
	return nil
}

// LLMTimeout 单次 LLM 调用超时
func (c *Config) LLMTimeout() time.Duration {
	d, _ := parseDuration(c.LLM.Timeout)
	return d
}

// SearchTimeout 单次搜索超时
func (c *Config) SearchTimeout() time.Duration {
	d, _ := parseDuration(c.Search.Timeout)
	return d
}

// MarketTimeout 单个行情类别的超时
func (c *Config) MarketTimeout() time.Duration {
	d, _ := parseDuration(c.Market.Timeout)
	return d
}

// AsOfDate 解析 as_of，未配置时返回零值
func (c *Config) AsOfDate() (time.Time, error) {
	if c.AsOf == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, c.AsOf)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
