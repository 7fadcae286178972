package model

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Category 行情数据类别
type Category string

const (
	CategoryPrice           Category = "price"
	CategoryRecommendations Category = "recommendations"
	CategoryProfile         Category = "company_info"
	CategoryNews            Category = "news"
	CategoryStatements      Category = "financial_statements"
	CategoryKeyStats        Category = "key_stats"
	CategoryHistory         Category = "historical_data"
	CategoryHolders         Category = "institutional_holders"
	CategoryEarnings        Category = "earnings_forecast"
)

// Categories 固定的渲染顺序
var Categories = []Category{
	CategoryPrice,
	CategoryRecommendations,
	CategoryProfile,
	CategoryNews,
	CategoryStatements,
	CategoryKeyStats,
	CategoryHistory,
	CategoryHolders,
	CategoryEarnings,
}

var categoryLabels = map[Category]string{
	CategoryPrice:           "Stock Price",
	CategoryRecommendations: "Analyst Recommendations",
	CategoryProfile:         "Company Info",
	CategoryNews:            "Recent News",
	CategoryStatements:      "Financial Statements",
	CategoryKeyStats:        "Key Stats",
	CategoryHistory:         "Historical Data",
	CategoryHolders:         "Institutional Holders",
	CategoryEarnings:        "Earnings Forecast",
}

// Label 渲染时使用的标题
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

const (
	// UnavailableMarker 缺失类别在快照文本中的标记
	UnavailableMarker = "[unavailable]"
	// MaxBlockChars 每个类别渲染后的最大字符数
	MaxBlockChars     = 4000
	truncatedSuffix   = "...[truncated]"
)

// Quote 当前价格
type Quote struct {
	Price         float64
	PreviousClose float64
	Currency      string
}

// RecommendationTrend 某一期的分析师评级分布
type RecommendationTrend struct {
	Period     string
	StrongBuy  int
	Buy        int
	Hold       int
	Sell       int
	StrongSell int
}

// Recommendations 分析师评级与目标价
type Recommendations struct {
	Key          string
	NumAnalysts  int
	CurrentPrice float64
	TargetMean   float64
	TargetMedian float64
	Trend        []RecommendationTrend
}

// CompanyProfile 公司概况
type CompanyProfile struct {
	Name      string
	QuoteType string
	Industry  string
	Country   string
	Exchange  string
	Summary   string
}

// NewsItem 单条公司新闻
type NewsItem struct {
	Title       string
	Publisher   string
	Link        string
	PublishedAt time.Time
}

// LineItem 有序的名称/数值对
type LineItem struct {
	Name  string
	Value float64
}

// StatementPeriod 某一报告期的报表
type StatementPeriod struct {
	EndDate string
	Items   []LineItem
}

// FinancialStatements 三大报表
type FinancialStatements struct {
	Income       []StatementPeriod
	BalanceSheet []StatementPeriod
	CashFlow     []StatementPeriod
}

// Holder 机构持仓
type Holder struct {
	Organization string
	PctHeld      float64 // 0~1
	Shares       float64
	ReportDate   string
}

// EarningsEstimate 盈利预测
type EarningsEstimate struct {
	Period      string
	EndDate     string
	EPSAvg      float64
	EPSLow      float64
	EPSHigh     float64
	RevenueAvg  float64
	Growth      float64
	NumAnalysts int
}

// HistorySummary 历史行情摘要，NaN 表示数据不足
type HistorySummary struct {
	Period       string
	Interval     string
	Bars         int
	First        time.Time
	Last         time.Time
	StartClose   float64
	EndClose     float64
	ChangePct    float64
	High         float64
	Low          float64
	SMA20        float64
	SMA50        float64
	RSI14        float64
	Volatility   float64 // 年化
	RecentCloses []float64
}

// MarketSnapshot 单次运行的行情快照，构建完成后只读
type MarketSnapshot struct {
	Symbol    string
	Source    string
	FetchedAt time.Time

	Quote           *Quote
	Recommendations *Recommendations
	Profile         *CompanyProfile
	News            []NewsItem
	Statements      *FinancialStatements
	KeyStats        []LineItem
	History         *HistorySummary
	Holders         []Holder
	Earnings        []EarningsEstimate

	// Unavailable 获取失败的类别及原因
	Unavailable map[Category]error
}

// Available 判断某类别是否获取成功
func (s *MarketSnapshot) Available(c Category) bool {
	_, failed := s.Unavailable[c]
	return !failed
}

// UnavailableCategories 按渲染顺序返回缺失类别
func (s *MarketSnapshot) UnavailableCategories() []Category {
	var out []Category
	for _, c := range Categories {
		if !s.Available(c) {
			out = append(out, c)
		}
	}
	return out
}

// Render 生成嵌入 prompt 的文本，每个类别一段且长度受限
func (s *MarketSnapshot) Render() string {
	var sb strings.Builder
	for _, c := range Categories {
		block := UnavailableMarker
		if s.Available(c) {
			block = Truncate(s.renderCategory(c), MaxBlockChars)
		}
		// 多行块从下一行开始
		sep := " "
		if strings.HasPrefix(block, "\n") {
			sep = ""
		}
		fmt.Fprintf(&sb, "%s:%s%s\n", c.Label(), sep, block)
	}
	return sb.String()
}

func (s *MarketSnapshot) renderCategory(c Category) string {
	switch c {
	case CategoryPrice:
		return renderQuote(s.Quote)
	case CategoryRecommendations:
		return renderRecommendations(s.Recommendations)
	case CategoryProfile:
		return renderProfile(s.Profile)
	case CategoryNews:
		return renderNews(s.News)
	case CategoryStatements:
		return renderStatements(s.Statements)
	case CategoryKeyStats:
		return renderLineItems(s.KeyStats)
	case CategoryHistory:
		return renderHistory(s.History)
	case CategoryHolders:
		return renderHolders(s.Holders)
	case CategoryEarnings:
		return renderEarnings(s.Earnings)
	}
	return "none reported"
}

func renderQuote(q *Quote) string {
	if q == nil {
		return "N/A"
	}
	out := formatPrice(q.Price)
	if q.Currency != "" {
		out += " " + q.Currency
	}
	if q.PreviousClose > 0 {
		out += fmt.Sprintf(" (previous close %s)", formatPrice(q.PreviousClose))
	}
	return out
}

func renderRecommendations(r *Recommendations) string {
	if r == nil {
		return "none reported"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "consensus=%s analysts=%d", orNA(r.Key), r.NumAnalysts)
	if r.TargetMean > 0 {
		fmt.Fprintf(&sb, " target_mean=%s", formatPrice(r.TargetMean))
	}
	if r.TargetMedian > 0 {
		fmt.Fprintf(&sb, " target_median=%s", formatPrice(r.TargetMedian))
	}
	if r.CurrentPrice > 0 && r.TargetMean > 0 {
		fmt.Fprintf(&sb, " implied_upside=%+.1f%%", (r.TargetMean-r.CurrentPrice)/r.CurrentPrice*100)
	}
	for _, t := range r.Trend {
		fmt.Fprintf(&sb, "\n  period %s: strongBuy=%d buy=%d hold=%d sell=%d strongSell=%d",
			t.Period, t.StrongBuy, t.Buy, t.Hold, t.Sell, t.StrongSell)
	}
	return sb.String()
}

func renderProfile(p *CompanyProfile) string {
	if p == nil {
		return "none reported"
	}
	parts := []string{
		"name=" + orNA(p.Name),
		"type=" + orNA(p.QuoteType),
		"industry=" + orNA(p.Industry),
		"country=" + orNA(p.Country),
		"exchange=" + orNA(p.Exchange),
	}
	out := strings.Join(parts, " ")
	if p.Summary != "" {
		out += "\n  " + p.Summary
	}
	return out
}

func renderNews(items []NewsItem) string {
	if len(items) == 0 {
		return "none reported"
	}
	var sb strings.Builder
	for i, n := range items {
		date := "unknown date"
		if !n.PublishedAt.IsZero() {
			date = n.PublishedAt.UTC().Format(time.DateOnly)
		}
		fmt.Fprintf(&sb, "\n  %d. [%s] %s (%s)", i+1, date, n.Title, orNA(n.Publisher))
	}
	return sb.String()
}

func renderStatements(fs *FinancialStatements) string {
	if fs == nil {
		return "none reported"
	}
	var sb strings.Builder
	writePeriods := func(title string, periods []StatementPeriod) {
		if len(periods) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n  %s:", title)
		for _, p := range periods {
			fmt.Fprintf(&sb, "\n    %s: %s", p.EndDate, renderLineItems(p.Items))
		}
	}
	writePeriods("Income Statement", fs.Income)
	writePeriods("Balance Sheet", fs.BalanceSheet)
	writePeriods("Cash Flow", fs.CashFlow)
	if sb.Len() == 0 {
		return "none reported"
	}
	return sb.String()
}

func renderLineItems(items []LineItem) string {
	if len(items) == 0 {
		return "none reported"
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Name+"="+FormatCompact(it.Value))
	}
	return strings.Join(parts, " ")
}

func renderHistory(h *HistorySummary) string {
	if h == nil || h.Bars == 0 {
		return "none reported"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "period=%s interval=%s bars=%d from=%s to=%s",
		h.Period, h.Interval, h.Bars, h.First.UTC().Format(time.DateOnly), h.Last.UTC().Format(time.DateOnly))
	fmt.Fprintf(&sb, "\n  start_close=%s end_close=%s change=%s high=%s low=%s",
		formatPrice(h.StartClose), formatPrice(h.EndClose), formatMaybe(h.ChangePct, "%+.2f%%"), formatPrice(h.High), formatPrice(h.Low))
	fmt.Fprintf(&sb, "\n  sma20=%s sma50=%s rsi14=%s volatility=%s",
		formatMaybe(h.SMA20, "%.2f"), formatMaybe(h.SMA50, "%.2f"), formatMaybe(h.RSI14, "%.1f"), formatMaybe(h.Volatility*100, "%.1f%%"))
	if len(h.RecentCloses) > 0 {
		closes := make([]string, len(h.RecentCloses))
		for i, c := range h.RecentCloses {
			closes[i] = formatPrice(c)
		}
		fmt.Fprintf(&sb, "\n  recent_closes=%s", strings.Join(closes, ","))
	}
	return sb.String()
}

func renderHolders(holders []Holder) string {
	if len(holders) == 0 {
		return "none reported"
	}
	var sb strings.Builder
	for _, h := range holders {
		fmt.Fprintf(&sb, "\n  %s: %.2f%% (%s shares, reported %s)",
			h.Organization, h.PctHeld*100, FormatCompact(h.Shares), orNA(h.ReportDate))
	}
	return sb.String()
}

func renderEarnings(es []EarningsEstimate) string {
	if len(es) == 0 {
		return "none reported"
	}
	var sb strings.Builder
	for _, e := range es {
		fmt.Fprintf(&sb, "\n  %s (ends %s): eps_avg=%.2f eps_low=%.2f eps_high=%.2f revenue_avg=%s growth=%+.1f%% analysts=%d",
			e.Period, orNA(e.EndDate), e.EPSAvg, e.EPSLow, e.EPSHigh, FormatCompact(e.RevenueAvg), e.Growth*100, e.NumAnalysts)
	}
	return sb.String()
}

// FormatCompact 将大数格式化为 1.23B 之类的紧凑形式
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.4g", v)
	}
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatMaybe(v float64, format string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// Truncate 按字符截断，保证不切坏 UTF-8
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	keep := max - utf8.RuneCountInString(truncatedSuffix)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncatedSuffix
}
