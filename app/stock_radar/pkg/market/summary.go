package market

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

const recentCloses = 5

// SummarizeHistory 把完整 K 线压缩成固定长度的摘要，指标数据不足时为 NaN
func SummarizeHistory(bars []Bar, period, interval string) *model.HistorySummary {
	if len(bars) == 0 {
		return &model.HistorySummary{Period: period, Interval: interval}
	}

	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	closes := make([]float64, len(sorted))
	high, low := math.Inf(-1), math.Inf(1)
	for i, b := range sorted {
		closes[i] = b.Close
		h, l := b.High, b.Low
		if h == 0 {
			h = b.Close
		}
		if l == 0 {
			l = b.Close
		}
		high = math.Max(high, h)
		low = math.Min(low, l)
	}

	first, last := closes[0], closes[len(closes)-1]
	h := &model.HistorySummary{
		Period:     period,
		Interval:   interval,
		Bars:       len(sorted),
		First:      sorted[0].Date,
		Last:       sorted[len(sorted)-1].Date,
		StartClose: first,
		EndClose:   last,
		ChangePct:  math.NaN(),
		High:       high,
		Low:        low,
		SMA20:      lastSMA(closes, 20),
		SMA50:      lastSMA(closes, 50),
		RSI14:      lastRSI(closes, 14),
		Volatility: annualizedVolatility(closes, interval),
	}
	if first != 0 {
		h.ChangePct = (last - first) / first * 100
	}

	n := min(recentCloses, len(closes))
	h.RecentCloses = append([]float64(nil), closes[len(closes)-n:]...)
	return h
}

func lastSMA(closes []float64, length int) float64 {
	if len(closes) < length {
		return math.NaN()
	}
	sma := talib.Sma(closes, length)
	return sma[len(sma)-1]
}

func lastRSI(closes []float64, length int) float64 {
	if len(closes) <= length {
		return math.NaN()
	}
	rsi := talib.Rsi(closes, length)
	return rsi[len(rsi)-1]
}

func annualizedVolatility(closes []float64, interval string) float64 {
	if len(closes) < 3 {
		return math.NaN()
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return math.NaN()
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear(interval))
}

func periodsPerYear(interval string) float64 {
	switch interval {
	case "1wk", "5d":
		return 52
	case "1mo":
		return 12
	case "3mo":
		return 4
	default:
		return 252
	}
}
