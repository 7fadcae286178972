package yahoo

import (
	"context"
	"fmt"

	yfclient "github.com/wnjoon/go-yfinance/pkg/client"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// call 让不支持 ctx 的库调用也能按 ctx 超时返回
// ctx 结束后 fn 仍在后台运行，直到 go-yfinance 自身的请求超时
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

// newTicker 每次调用独立的 go-yfinance 客户端，超时与 JSON 接口一致
func (c *Client) newTicker(symbol string) (*ticker.Ticker, func(), error) {
	yc, err := yfclient.New(yfclient.WithTimeout(c.nativeTimeout), yfclient.WithUserAgent(userAgent))
	if err != nil {
		return nil, nil, fmt.Errorf("create yfinance client failed: %w", err)
	}
	t, err := ticker.New(symbol, ticker.WithClient(yc))
	if err != nil {
		yc.Close()
		return nil, nil, fmt.Errorf("create ticker failed: %w", err)
	}
	return t, func() {
		t.Close()
		yc.Close()
	}, nil
}

// Price 当前价格，Quote 无效时回退到 Info
func (c *Client) Price(ctx context.Context, symbol string) (*model.Quote, error) {
	return call(ctx, func() (*model.Quote, error) {
		t, closeTicker, err := c.newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer closeTicker()

		q := &model.Quote{}
		if quote, err := t.Quote(); err == nil && quote != nil {
			switch {
			case quote.RegularMarketPrice > 0:
				q.Price = float64(quote.RegularMarketPrice)
			case quote.PreMarketPrice > 0:
				q.Price = float64(quote.PreMarketPrice)
			case quote.PostMarketPrice > 0:
				q.Price = float64(quote.PostMarketPrice)
			}
		}

		info, err := t.Info()
		if err == nil && info != nil {
			q.PreviousClose = float64(info.RegularMarketPreviousClose)
			if q.Price == 0 {
				q.Price = float64(info.CurrentPrice)
			}
		}
		if q.Price == 0 {
			return nil, fmt.Errorf("no valid price for %s", symbol)
		}
		return q, nil
	})
}

// Recommendations 评级分布和目标价
func (c *Client) Recommendations(ctx context.Context, symbol string) (*model.Recommendations, error) {
	return call(ctx, func() (*model.Recommendations, error) {
		t, closeTicker, err := c.newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer closeTicker()

		target, err := t.AnalystPriceTargets()
		if err != nil {
			return nil, fmt.Errorf("get price targets failed: %w", err)
		}
		recs := &model.Recommendations{
			Key:          target.RecommendationKey,
			NumAnalysts:  int(target.NumberOfAnalysts),
			CurrentPrice: float64(target.Current),
			TargetMean:   float64(target.Mean),
			TargetMedian: float64(target.Median),
		}

		trend, err := t.Recommendations()
		if err != nil {
			return nil, fmt.Errorf("get recommendations failed: %w", err)
		}
		if trend != nil {
			for i, p := range trend.Trend {
				recs.Trend = append(recs.Trend, model.RecommendationTrend{
					Period:     periodLabel(i),
					StrongBuy:  int(p.StrongBuy),
					Buy:        int(p.Buy),
					Hold:       int(p.Hold),
					Sell:       int(p.Sell),
					StrongSell: int(p.StrongSell),
				})
			}
		}
		return recs, nil
	})
}

// periodLabel 趋势按月倒序排列，第 0 条为当月
func periodLabel(i int) string {
	if i == 0 {
		return "0m"
	}
	return fmt.Sprintf("-%dm", i)
}

// Profile 公司概况
func (c *Client) Profile(ctx context.Context, symbol string) (*model.CompanyProfile, error) {
	return call(ctx, func() (*model.CompanyProfile, error) {
		t, closeTicker, err := c.newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer closeTicker()

		info, err := t.Info()
		if err != nil {
			return nil, fmt.Errorf("get info failed: %w", err)
		}
		name := info.LongName
		if name == "" {
			name = info.ShortName
		}
		return &model.CompanyProfile{
			Name:      name,
			QuoteType: info.QuoteType,
			Industry:  info.Industry,
			Country:   info.Country,
			Exchange:  info.Exchange,
		}, nil
	})
}

// KeyStats 估值和财务比率，值为 0 的字段省略
func (c *Client) KeyStats(ctx context.Context, symbol string) ([]model.LineItem, error) {
	return call(ctx, func() ([]model.LineItem, error) {
		t, closeTicker, err := c.newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer closeTicker()

		info, err := t.Info()
		if err != nil {
			return nil, fmt.Errorf("get info failed: %w", err)
		}

		candidates := []model.LineItem{
			{Name: "marketCap", Value: float64(info.MarketCap)},
			{Name: "trailingPE", Value: float64(info.TrailingPE)},
			{Name: "forwardPE", Value: float64(info.ForwardPE)},
			{Name: "pegRatio", Value: float64(info.PegRatio)},
			{Name: "priceToBook", Value: float64(info.PriceToBook)},
			{Name: "revenueGrowth", Value: float64(info.RevenueGrowth)},
			{Name: "earningsGrowth", Value: float64(info.EarningsGrowth)},
			{Name: "profitMargins", Value: float64(info.ProfitMargins)},
			{Name: "operatingMargins", Value: float64(info.OperatingMargins)},
			{Name: "returnOnEquity", Value: float64(info.ReturnOnEquity)},
			{Name: "debtToEquity", Value: float64(info.DebtToEquity)},
			{Name: "currentRatio", Value: float64(info.CurrentRatio)},
			{Name: "dividendYield", Value: float64(info.DividendYield)},
			{Name: "fiveYearAvgDividendYield", Value: float64(info.FiveYearAvgDividendYield)},
		}
		stats := make([]model.LineItem, 0, len(candidates))
		for _, it := range candidates {
			if it.Value != 0 {
				stats = append(stats, it)
			}
		}
		return stats, nil
	})
}

// History 历史 K 线
func (c *Client) History(ctx context.Context, symbol, period, interval string) ([]market.Bar, error) {
	return call(ctx, func() ([]market.Bar, error) {
		t, closeTicker, err := c.newTicker(symbol)
		if err != nil {
			return nil, err
		}
		defer closeTicker()

		bars, err := t.History(models.HistoryParams{
			Period:     period,
			Interval:   interval,
			AutoAdjust: true,
		})
		if err != nil {
			return nil, fmt.Errorf("get history failed: %w", err)
		}

		out := make([]market.Bar, 0, len(bars))
		for _, b := range bars {
			out = append(out, market.Bar{
				Date:   b.Date,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: float64(b.Volume),
			})
		}
		return out, nil
	})
}
