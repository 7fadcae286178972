package market

import (
	"context"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// MockProvider 返回固定数据，可按类别注入错误，用于离线运行和测试
type MockProvider struct {
	Quote          *model.Quote
	Recs           *model.Recommendations
	CompanyProfile *model.CompanyProfile
	NewsItems      []model.NewsItem
	FinStatements  *model.FinancialStatements
	Stats          []model.LineItem
	Bars           []Bar
	HolderList     []model.Holder
	Estimates      []model.EarningsEstimate
	Errors         map[model.Category]error
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider 创建带完整样例数据的 MockProvider
func NewMockProvider() *MockProvider {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &MockProvider{
		Quote: &model.Quote{Price: 24.52, PreviousClose: 23.87, Currency: "USD"},
		Recs: &model.Recommendations{
			Key:          "hold",
			NumAnalysts:  18,
			CurrentPrice: 24.52,
			TargetMean:   21.35,
			TargetMedian: 22.00,
			Trend: []model.RecommendationTrend{
				{Period: "0m", StrongBuy: 3, Buy: 3, Hold: 8, Sell: 2, StrongSell: 2},
				{Period: "-1m", StrongBuy: 3, Buy: 2, Hold: 9, Sell: 2, StrongSell: 2},
			},
		},
		CompanyProfile: &model.CompanyProfile{
			Name:      "Palantir Technologies Inc.",
			QuoteType: "EQUITY",
			Industry:  "Software - Infrastructure",
			Country:   "United States",
			Exchange:  "NMS",
			Summary:   "Builds and deploys software platforms for the intelligence community and commercial enterprises.",
		},
		NewsItems: []model.NewsItem{
			{Title: "Palantir lands new defense contract", Publisher: "Reuters", Link: "https://example.com/news/1", PublishedAt: start.AddDate(0, 11, 0)},
			{Title: "AIP adoption accelerates", Publisher: "Bloomberg", Link: "https://example.com/news/2", PublishedAt: start.AddDate(0, 11, 3)},
		},
		FinStatements: &model.FinancialStatements{
			Income: []model.StatementPeriod{{EndDate: "2023-12-31", Items: []model.LineItem{
				{Name: "totalRevenue", Value: 2.225e9}, {Name: "netIncome", Value: 2.1e8},
			}}},
			BalanceSheet: []model.StatementPeriod{{EndDate: "2023-12-31", Items: []model.LineItem{
				{Name: "totalAssets", Value: 4.52e9}, {Name: "totalLiab", Value: 0.96e9},
			}}},
			CashFlow: []model.StatementPeriod{{EndDate: "2023-12-31", Items: []model.LineItem{
				{Name: "totalCashFromOperatingActivities", Value: 7.12e8},
			}}},
		},
		Stats: []model.LineItem{
			{Name: "marketCap", Value: 5.4e10},
			{Name: "trailingPE", Value: 245.2},
			{Name: "priceToBook", Value: 14.1},
		},
		Bars: mockBars(start, 24.0, 60),
		HolderList: []model.Holder{
			{Organization: "Vanguard Group Inc", PctHeld: 0.0812, Shares: 1.73e8, ReportDate: "2023-12-31"},
			{Organization: "Blackrock Inc.", PctHeld: 0.0645, Shares: 1.37e8, ReportDate: "2023-12-31"},
		},
		Estimates: []model.EarningsEstimate{
			{Period: "0q", EndDate: "2024-03-31", EPSAvg: 0.08, EPSLow: 0.07, EPSHigh: 0.09, RevenueAvg: 6.15e8, Growth: 0.6, NumAnalysts: 14},
			{Period: "+1y", EndDate: "2025-12-31", EPSAvg: 0.38, EPSLow: 0.3, EPSHigh: 0.45, RevenueAvg: 3.2e9, Growth: 0.21, NumAnalysts: 16},
		},
	}
}

func mockBars(start time.Time, basePrice float64, count int) []Bar {
	bars := make([]Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.002)
		bars[i] = Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) check(ctx context.Context, c model.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Errors[c]
}

func (m *MockProvider) Price(ctx context.Context, _ string) (*model.Quote, error) {
	if err := m.check(ctx, model.CategoryPrice); err != nil {
		return nil, err
	}
	return m.Quote, nil
}

func (m *MockProvider) Recommendations(ctx context.Context, _ string) (*model.Recommendations, error) {
	if err := m.check(ctx, model.CategoryRecommendations); err != nil {
		return nil, err
	}
	return m.Recs, nil
}

func (m *MockProvider) Profile(ctx context.Context, _ string) (*model.CompanyProfile, error) {
	if err := m.check(ctx, model.CategoryProfile); err != nil {
		return nil, err
	}
	return m.CompanyProfile, nil
}

func (m *MockProvider) News(ctx context.Context, _ string, limit int) ([]model.NewsItem, error) {
	if err := m.check(ctx, model.CategoryNews); err != nil {
		return nil, err
	}
	if limit > 0 && len(m.NewsItems) > limit {
		return m.NewsItems[:limit], nil
	}
	return m.NewsItems, nil
}

func (m *MockProvider) Statements(ctx context.Context, _ string) (*model.FinancialStatements, error) {
	if err := m.check(ctx, model.CategoryStatements); err != nil {
		return nil, err
	}
	return m.FinStatements, nil
}

func (m *MockProvider) KeyStats(ctx context.Context, _ string) ([]model.LineItem, error) {
	if err := m.check(ctx, model.CategoryKeyStats); err != nil {
		return nil, err
	}
	return m.Stats, nil
}

func (m *MockProvider) History(ctx context.Context, _, _, _ string) ([]Bar, error) {
	if err := m.check(ctx, model.CategoryHistory); err != nil {
		return nil, err
	}
	return m.Bars, nil
}

func (m *MockProvider) Holders(ctx context.Context, _ string) ([]model.Holder, error) {
	if err := m.check(ctx, model.CategoryHolders); err != nil {
		return nil, err
	}
	return m.HolderList, nil
}

func (m *MockProvider) EarningsForecast(ctx context.Context, _ string) ([]model.EarningsEstimate, error) {
	if err := m.check(ctx, model.CategoryEarnings); err != nil {
		return nil, err
	}
	return m.Estimates, nil
}
