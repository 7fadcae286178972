package factory

import (
	"fmt"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/duckduckgo"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/searxng"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	switch cfg.Search.Provider {
	case "", "duckduckgo":
		return duckduckgo.NewClient(cfg.SearchTimeout()), nil

	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey, cfg.SearchTimeout()), nil

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Search.Provider)
	}
}
