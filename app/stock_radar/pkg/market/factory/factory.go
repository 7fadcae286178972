package factory

import (
	"fmt"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market/yahoo"
)

// NewProvider 根据配置创建行情数据源
func NewProvider(cfg *config.Config) (market.Provider, error) {
	switch cfg.Market.Provider {
	case "", "yahoo":
		return yahoo.NewClient(cfg.Market.Proxy, cfg.MarketTimeout()), nil
	case "mock":
		return market.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown market provider: %s", cfg.Market.Provider)
	}
}

// NewAggregator 根据配置创建行情聚合器
func NewAggregator(cfg *config.Config) (*market.Aggregator, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return market.NewAggregator(provider, market.Options{
		Timeout:         cfg.MarketTimeout(),
		HistoryPeriod:   cfg.Market.HistoryPeriod,
		HistoryInterval: cfg.Market.HistoryInterval,
		NewsCount:       cfg.Market.NewsCount,
	}), nil
}
