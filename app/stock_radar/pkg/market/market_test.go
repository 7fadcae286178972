package market

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

func TestAggregate_FullSnapshot(t *testing.T) {
	agg := NewAggregator(NewMockProvider(), Options{Timeout: time.Second})

	snap, err := agg.Aggregate(context.Background(), " pltr ")
	require.NoError(t, err)

	assert.Equal(t, "PLTR", snap.Symbol)
	assert.Equal(t, "mock", snap.Source)
	assert.Empty(t, snap.Unavailable)
	require.NotNil(t, snap.History)
	assert.Equal(t, 60, snap.History.Bars)

	text := snap.Render()
	for _, c := range model.Categories {
		assert.Contains(t, text, c.Label()+":", c)
	}
	assert.NotContains(t, text, "none reported")
	assert.NotContains(t, text, "N/A")
	assert.Contains(t, text, "Recent News:\n  1. [2024-12-02] Palantir lands new defense contract (Reuters)")
	assert.Contains(t, text, "Vanguard Group Inc: 8.12%")
	assert.NotContains(t, text, model.UnavailableMarker)
}

func TestAggregate_SingleCategoryFailure(t *testing.T) {
	p := NewMockProvider()
	p.Errors = map[model.Category]error{
		model.CategoryHolders: model.ErrProviderUnreachable,
	}
	agg := NewAggregator(p, Options{})

	snap, err := agg.Aggregate(context.Background(), "PLTR")
	require.NoError(t, err)

	assert.Equal(t, []model.Category{model.CategoryHolders}, snap.UnavailableCategories())
	assert.ErrorIs(t, snap.Unavailable[model.CategoryHolders], model.ErrDataUnavailable)
	assert.ErrorIs(t, snap.Unavailable[model.CategoryHolders], model.ErrProviderUnreachable)
	assert.Nil(t, snap.Holders)

	text := snap.Render()
	assert.Contains(t, text, "Institutional Holders: [unavailable]\n")
	assert.Equal(t, 1, strings.Count(text, model.UnavailableMarker))
	assert.Contains(t, text, "Stock Price: 24.52 USD")
}

func TestAggregate_AllCategoriesFail(t *testing.T) {
	p := NewMockProvider()
	p.Errors = make(map[model.Category]error)
	for _, c := range model.Categories {
		p.Errors[c] = errors.New("connection refused")
	}

	snap, err := NewAggregator(p, Options{}).Aggregate(context.Background(), "PLTR")
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, model.ErrProviderUnreachable)
}

func TestAggregate_EmptySymbol(t *testing.T) {
	_, err := NewAggregator(NewMockProvider(), Options{}).Aggregate(context.Background(), "  ")
	assert.Error(t, err)
}

func TestAggregate_EmptyHistoryIsUnavailable(t *testing.T) {
	p := NewMockProvider()
	p.Bars = nil

	snap, err := NewAggregator(p, Options{}).Aggregate(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.False(t, snap.Available(model.CategoryHistory))
}

// slowProvider 在 History 上阻塞直到 ctx 结束
type slowProvider struct {
	*MockProvider
}

func (s slowProvider) History(ctx context.Context, _, _, _ string) ([]Bar, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAggregate_CategoryTimeout(t *testing.T) {
	agg := NewAggregator(slowProvider{NewMockProvider()}, Options{Timeout: 20 * time.Millisecond})

	snap, err := agg.Aggregate(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.ErrorIs(t, snap.Unavailable[model.CategoryHistory], context.DeadlineExceeded)
	assert.True(t, snap.Available(model.CategoryPrice))
}

func TestAggregate_NewsLimit(t *testing.T) {
	snap, err := NewAggregator(NewMockProvider(), Options{NewsCount: 1}).Aggregate(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.Len(t, snap.News, 1)
}

func TestSummarizeHistory(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, 60)
	for i := range bars {
		// 倒序传入，验证会按日期排序
		j := len(bars) - 1 - i
		bars[j] = Bar{Date: start.AddDate(0, 0, i), Close: float64(i + 1), High: float64(i + 1), Low: float64(i + 1)}
	}

	h := SummarizeHistory(bars, "3mo", "1d")

	assert.Equal(t, 60, h.Bars)
	assert.Equal(t, start, h.First)
	assert.Equal(t, start.AddDate(0, 0, 59), h.Last)
	assert.Equal(t, 1.0, h.StartClose)
	assert.Equal(t, 60.0, h.EndClose)
	assert.InDelta(t, 5900.0, h.ChangePct, 1e-9)
	assert.Equal(t, 60.0, h.High)
	assert.Equal(t, 1.0, h.Low)
	assert.InDelta(t, 50.5, h.SMA20, 1e-9)
	assert.InDelta(t, 35.5, h.SMA50, 1e-9)
	assert.InDelta(t, 100.0, h.RSI14, 1e-9)
	assert.Greater(t, h.Volatility, 0.0)
	assert.Equal(t, []float64{56, 57, 58, 59, 60}, h.RecentCloses)
}

func TestSummarizeHistory_ZeroStartClose(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Date: start, Close: 0},
		{Date: start.AddDate(0, 0, 1), Close: 12},
	}

	h := SummarizeHistory(bars, "5d", "1d")
	assert.True(t, math.IsNaN(h.ChangePct))

	snap := &model.MarketSnapshot{Symbol: "PLTR", History: h}
	text := snap.Render()
	assert.Contains(t, text, "change=n/a")
	assert.NotContains(t, text, "change=NaN")
}

func TestSummarizeHistory_ShortSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Date: start, Close: 10},
		{Date: start.AddDate(0, 0, 1), Close: 11},
	}

	h := SummarizeHistory(bars, "5d", "1d")

	assert.Equal(t, 2, h.Bars)
	assert.True(t, math.IsNaN(h.SMA20))
	assert.True(t, math.IsNaN(h.SMA50))
	assert.True(t, math.IsNaN(h.RSI14))
	assert.True(t, math.IsNaN(h.Volatility))
	assert.Equal(t, 11.0, h.High)
	assert.Equal(t, 10.0, h.Low)
	assert.Equal(t, []float64{10, 11}, h.RecentCloses)

	text := (&model.MarketSnapshot{History: h}).Render()
	assert.Contains(t, text, "sma20=n/a")
}
