package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
)

// NewBackend 根据配置创建大模型后端
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm api key is missing (set PERPLEXITY_API_KEY or LLM_API_KEY)")
	}

	switch cfg.LLM.Provider {
	case "", "openai":
		return NewEinoBackend(ctx, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.FinancialModel, cfg.LLMTimeout(), cfg.LLM.MaxTokens)
	case "claude":
		return NewClaudeBackend(cfg.LLM.APIKey, cfg.LLM.MaxTokens), nil
	case "gemini":
		return NewGeminiBackend(ctx, cfg.LLM.APIKey, cfg.LLM.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

// NewLimiter Limit 为 RPM/60，Burst 为 QPS
func NewLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Concurrency.RPM <= 0 {
		return nil
	}
	burst := cfg.Concurrency.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.Concurrency.RPM)/60.0), burst)
}

// NewGeneratorFromConfig 创建后端并包装为 Generator
func NewGeneratorFromConfig(ctx context.Context, cfg *config.Config) (*Generator, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGenerator(backend, Options{
		FinancialModel: cfg.LLM.FinancialModel,
		SentimentModel: cfg.LLM.SentimentModel,
		Timeout:        cfg.LLMTimeout(),
		Limiter:        NewLimiter(cfg),
		MaxRetries:     cfg.LLM.MaxRetries,
	}), nil
}
