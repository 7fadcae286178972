package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// Bar 一根 K 线
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Provider 行情数据源，每个方法对应一个数据类别
type Provider interface {
	Name() string
	Price(ctx context.Context, symbol string) (*model.Quote, error)
	Recommendations(ctx context.Context, symbol string) (*model.Recommendations, error)
	Profile(ctx context.Context, symbol string) (*model.CompanyProfile, error)
	News(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error)
	Statements(ctx context.Context, symbol string) (*model.FinancialStatements, error)
	KeyStats(ctx context.Context, symbol string) ([]model.LineItem, error)
	History(ctx context.Context, symbol, period, interval string) ([]Bar, error)
	Holders(ctx context.Context, symbol string) ([]model.Holder, error)
	EarningsForecast(ctx context.Context, symbol string) ([]model.EarningsEstimate, error)
}

// Options 聚合参数
type Options struct {
	Timeout         time.Duration // 单个类别的超时，0 表示不限
	HistoryPeriod   string
	HistoryInterval string
	NewsCount       int
	Workers         int
}

// Aggregator 并发拉取各类行情数据并组装快照
type Aggregator struct {
	provider Provider
	opts     Options
}

// NewAggregator 创建聚合器
func NewAggregator(provider Provider, opts Options) *Aggregator {
	if opts.HistoryPeriod == "" {
		opts.HistoryPeriod = "1y"
	}
	if opts.HistoryInterval == "" {
		opts.HistoryInterval = "1d"
	}
	if opts.NewsCount <= 0 {
		opts.NewsCount = 8
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Aggregator{provider: provider, opts: opts}
}

// Name 数据源名称
func (a *Aggregator) Name() string {
	return a.provider.Name()
}

// Aggregate 获取 symbol 的全部类别数据；单个类别失败只记录，全部失败才返回错误
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"symbol": symbol, "provider": a.provider.Name()})
	snap := &model.MarketSnapshot{
		Symbol:      symbol,
		Source:      a.provider.Name(),
		FetchedAt:   time.Now(),
		Unavailable: make(map[model.Category]error),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(a.opts.Workers)

	for _, c := range model.Categories {
		g.Go(func() error {
			cctx, cancel := a.categoryContext(ctx)
			defer cancel()

			apply, err := a.fetch(cctx, symbol, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warnf("获取 [%s] 数据失败: %v", c, err)
				snap.Unavailable[c] = fmt.Errorf("%s: %w: %w", c, model.ErrDataUnavailable, err)
				return nil
			}
			apply(snap)
			return nil
		})
	}
	_ = g.Wait()

	if len(snap.Unavailable) == len(model.Categories) {
		return nil, fmt.Errorf("all market data categories failed for %s: %w: %w",
			symbol, model.ErrProviderUnreachable, snap.Unavailable[model.CategoryPrice])
	}

	log.Infof("行情快照完成，缺失类别 %d 个", len(snap.Unavailable))
	return snap, nil
}

func (a *Aggregator) categoryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Timeout > 0 {
		return context.WithTimeout(ctx, a.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// fetch 返回写入快照的函数，写入统一在锁内进行
func (a *Aggregator) fetch(ctx context.Context, symbol string, c model.Category) (func(*model.MarketSnapshot), error) {
	p := a.provider
	switch c {
	case model.CategoryPrice:
		q, err := p.Price(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Quote = q }, err
	case model.CategoryRecommendations:
		r, err := p.Recommendations(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Recommendations = r }, err
	case model.CategoryProfile:
		pr, err := p.Profile(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Profile = pr }, err
	case model.CategoryNews:
		n, err := p.News(ctx, symbol, a.opts.NewsCount)
		if len(n) > a.opts.NewsCount {
			n = n[:a.opts.NewsCount]
		}
		return func(s *model.MarketSnapshot) { s.News = n }, err
	case model.CategoryStatements:
		fs, err := p.Statements(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Statements = fs }, err
	case model.CategoryKeyStats:
		ks, err := p.KeyStats(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.KeyStats = ks }, err
	case model.CategoryHistory:
		bars, err := p.History(ctx, symbol, a.opts.HistoryPeriod, a.opts.HistoryInterval)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, errors.New("no price history returned")
		}
		h := SummarizeHistory(bars, a.opts.HistoryPeriod, a.opts.HistoryInterval)
		return func(s *model.MarketSnapshot) { s.History = h }, nil
	case model.CategoryHolders:
		hs, err := p.Holders(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Holders = hs }, err
	case model.CategoryEarnings:
		es, err := p.EarningsForecast(ctx, symbol)
		return func(s *model.MarketSnapshot) { s.Earnings = es }, err
	}
	return nil, fmt.Errorf("unknown category %q", c)
}
