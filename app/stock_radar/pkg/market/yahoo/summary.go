package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

const maxStatementPeriods = 4

var (
	incomeFields   = []string{"totalRevenue", "costOfRevenue", "grossProfit", "operatingIncome", "ebit", "netIncome"}
	balanceFields  = []string{"totalAssets", "totalLiab", "totalStockholderEquity", "cash", "totalCurrentAssets", "totalCurrentLiabilities", "longTermDebt"}
	cashFlowFields = []string{"totalCashFromOperatingActivities", "capitalExpenditures", "totalCashflowsFromInvestingActivities", "totalCashFromFinancingActivities", "changeInCash"}
)

// quoteSummary 请求 v10 quoteSummary 并返回第一个结果
func (c *Client) quoteSummary(ctx context.Context, symbol string, modules ...string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(modules, ","))
	if crumb := c.ensureCrumb(ctx); crumb != "" {
		params.Set("crumb", crumb)
	}

	out, err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params)
	if err != nil {
		return nil, err
	}
	qs := getMap(out, "quoteSummary")
	if qs == nil {
		return nil, fmt.Errorf("yahoo: missing quoteSummary in response")
	}
	if e := getMap(qs, "error"); e != nil {
		return nil, fmt.Errorf("yahoo api error: %s", getString(e, "description"))
	}
	results := getSlice(qs, "result")
	if len(results) == 0 {
		return nil, fmt.Errorf("yahoo: no quoteSummary result for %s", symbol)
	}
	first, ok := results[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("yahoo: unexpected quoteSummary result for %s", symbol)
	}
	return first, nil
}

// Statements 利润表、资产负债表和现金流量表（年报）
func (c *Client) Statements(ctx context.Context, symbol string) (*model.FinancialStatements, error) {
	res, err := c.quoteSummary(ctx, symbol, "incomeStatementHistory", "balanceSheetHistory", "cashflowStatementHistory")
	if err != nil {
		return nil, err
	}

	fs := &model.FinancialStatements{
		Income:       parsePeriods(getMap(res, "incomeStatementHistory"), "incomeStatementHistory", incomeFields),
		BalanceSheet: parsePeriods(getMap(res, "balanceSheetHistory"), "balanceSheetStatements", balanceFields),
		CashFlow:     parsePeriods(getMap(res, "cashflowStatementHistory"), "cashflowStatements", cashFlowFields),
	}
	if len(fs.Income)+len(fs.BalanceSheet)+len(fs.CashFlow) == 0 {
		return nil, fmt.Errorf("yahoo: no financial statements for %s", symbol)
	}
	return fs, nil
}

func parsePeriods(module map[string]interface{}, listKey string, fields []string) []model.StatementPeriod {
	if module == nil {
		return nil
	}
	var periods []model.StatementPeriod
	for _, raw := range getSlice(module, listKey) {
		stmt, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		p := model.StatementPeriod{EndDate: getFmt(stmt, "endDate")}
		for _, f := range fields {
			if _, present := stmt[f]; !present {
				continue
			}
			p.Items = append(p.Items, model.LineItem{Name: f, Value: getRaw(stmt, f)})
		}
		periods = append(periods, p)
		if len(periods) == maxStatementPeriods {
			break
		}
	}
	return periods
}

// Holders 前十大机构持仓
func (c *Client) Holders(ctx context.Context, symbol string) ([]model.Holder, error) {
	res, err := c.quoteSummary(ctx, symbol, "institutionOwnership")
	if err != nil {
		return nil, err
	}

	var holders []model.Holder
	for _, raw := range getSlice(getMap(res, "institutionOwnership"), "ownershipList") {
		h, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		holders = append(holders, model.Holder{
			Organization: getString(h, "organization"),
			PctHeld:      getRaw(h, "pctHeld"),
			Shares:       getRaw(h, "position"),
			ReportDate:   getFmt(h, "reportDate"),
		})
	}
	if len(holders) > 10 {
		holders = holders[:10]
	}
	return holders, nil
}

// EarningsForecast 分析师对未来季度/年度的盈利和营收预测
func (c *Client) EarningsForecast(ctx context.Context, symbol string) ([]model.EarningsEstimate, error) {
	res, err := c.quoteSummary(ctx, symbol, "earningsTrend")
	if err != nil {
		return nil, err
	}

	var out []model.EarningsEstimate
	for _, raw := range getSlice(getMap(res, "earningsTrend"), "trend") {
		tr, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		eps := getMap(tr, "earningsEstimate")
		rev := getMap(tr, "revenueEstimate")
		e := model.EarningsEstimate{
			Period:  getString(tr, "period"),
			EndDate: getFmt(tr, "endDate"),
			Growth:  getRaw(tr, "growth"),
		}
		if eps != nil {
			e.EPSAvg = getRaw(eps, "avg")
			e.EPSLow = getRaw(eps, "low")
			e.EPSHigh = getRaw(eps, "high")
			e.NumAnalysts = int(getRaw(eps, "numberOfAnalysts"))
		}
		if rev != nil {
			e.RevenueAvg = getRaw(rev, "avg")
		}
		out = append(out, e)
	}
	return out, nil
}

// News 最近的公司新闻
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = 8
	}
	params := url.Values{}
	params.Set("q", symbol)
	params.Set("quotesCount", "0")
	params.Set("newsCount", strconv.Itoa(limit))

	out, err := c.getJSON(ctx, "/v1/finance/search", params)
	if err != nil {
		return nil, err
	}

	var items []model.NewsItem
	for _, raw := range getSlice(out, "news") {
		n, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		item := model.NewsItem{
			Title:     getString(n, "title"),
			Publisher: getString(n, "publisher"),
			Link:      getString(n, "link"),
		}
		if ts := getFloat64(n, "providerPublishTime"); ts > 0 {
			item.PublishedAt = time.Unix(int64(ts), 0).UTC()
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}
