package prompt

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// Kind 提示词类别，决定使用哪个模型
type Kind string

const (
	KindFinancial Kind = "financial"
	KindSentiment Kind = "sentiment"
)

// Role 消息角色
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message 一条带角色的消息
type Message struct {
	Role    Role
	Content string
}

// Request 发给 LLM 的完整请求，构造后不再修改
type Request struct {
	Kind     Kind
	Symbol   string
	Messages []Message
}

// System 返回系统指令
func (r Request) System() string {
	return r.content(RoleSystem)
}

// User 返回用户消息
func (r Request) User() string {
	return r.content(RoleUser)
}

func (r Request) content(role Role) string {
	for _, m := range r.Messages {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}

// 两张表的列名，tablecheck 按同样的顺序解析
var (
	AnalystColumns = []string{"Analyst", "Firm", "Accuracy", "Stock", "Prediction", "Tentative Date"}
	RatingColumns  = []string{"Analyst", "Accuracy Rating (1-10)"}
)

// MinAnalystRows 表一最少行数
const MinAnalystRows = 5

// NoResultsMarker 搜索无结果时的占位文本
const NoResultsMarker = "No search results found."

const financialTemplate = `You are a financial analysis assistant. Use the market data below and perform this task: provide a detailed summary of %[1]s stock predictions from top analysts. Today's date is %[2]s. Please follow these instructions:
1. Create a table with exactly these columns, in this order: %[3]s. "Prediction" states the direction (upside or downside) and the magnitude (target price and percentage). "Tentative Date" is formatted as year and quarter (e.g. 2026 Q3) and must be strictly after %[2]s; show future dates only.
2. Fill the table with data for at least %[4]d different analysts, including their name, firm, accuracy percentage, the stock they're analyzing (%[1]s), their prediction, and the date by which they expect their prediction to materialize.
3. After the first table, create a second table with exactly these columns, in this order: %[5]s.
4. In this second table, list the same analysts from the first table, but convert their accuracy percentage to a 1-10 scale by dividing by 10 and rounding to one decimal, rounding halves up (e.g., 87%% becomes 8.7, 72.5%% becomes 7.3, 88.5%% becomes 8.9, 100%% becomes 10.0, 0%% becomes 0.0).
5. After both tables, include a brief disclaimer about the nature of these predictions and the importance of personal research and professional advice.

Ensure that your response is formatted clearly, with both tables written as markdown tables and the disclaimer separate from the tabular data.

Market data for %[1]s:
%[6]s`

const sentimentSystem = "You are a web search and sentiment analysis AI. Analyze the given search results for the latest news, financial sheets, and technical indicators. Provide a summary and sentiment analysis."

// BuildFinancial 构造财务分析提示词，asOf 只取日期部分
func BuildFinancial(symbol string, snap *model.MarketSnapshot, asOf time.Time) Request {
	data := ""
	if snap != nil {
		data = snap.Render()
	}
	date := asOf.Format(time.DateOnly)

	system := fmt.Sprintf(financialTemplate,
		symbol,
		date,
		strings.Join(AnalystColumns, ", "),
		MinAnalystRows,
		strings.Join(RatingColumns, ", "),
		data,
	)
	user := fmt.Sprintf("Summarize analyst recommendations for %s. Here's the latest information:\n%s", symbol, data)

	return Request{
		Kind:   KindFinancial,
		Symbol: symbol,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
	}
}

// BuildSentiment 构造情绪分析提示词
func BuildSentiment(symbol string, results []model.Article) Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following search results for %s:\n", symbol)
	if len(results) == 0 {
		sb.WriteString(NoResultsMarker)
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, oneLine(r.Title))
		if r.Link != "" {
			fmt.Fprintf(&sb, "   URL: %s\n", r.Link)
		}
		if r.PubDate != "" {
			fmt.Fprintf(&sb, "   Date: %s\n", r.PubDate)
		}
		if r.Content != "" {
			fmt.Fprintf(&sb, "   %s\n", oneLine(r.Content))
		}
	}

	return Request{
		Kind:   KindSentiment,
		Symbol: symbol,
		Messages: []Message{
			{Role: RoleSystem, Content: sentimentSystem},
			{Role: RoleUser, Content: strings.TrimRight(sb.String(), "\n")},
		},
	}
}

// RatingFromAccuracy 准确率百分比转 1-10 评分，保留一位小数，.5 向上取整
func RatingFromAccuracy(pct float64) float64 {
	return math.Round(pct) / 10
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
