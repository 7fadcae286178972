package model

import "time"

// Article 喂给 LLM 的搜索结果条目
type Article struct {
	Title   string
	Link    string
	Source  string
	PubDate string
	Content string // 摘要或抓取到的正文
}

// SentimentLabel 情绪标签
type SentimentLabel string

const (
	Positive SentimentLabel = "Positive"
	Negative SentimentLabel = "Negative"
	Neutral  SentimentLabel = "Neutral"
)

// LabelFor 根据情绪分值给出标签，0 严格等于 0 时为 Neutral
func LabelFor(polarity float64) SentimentLabel {
	switch {
	case polarity > 0:
		return Positive
	case polarity < 0:
		return Negative
	default:
		return Neutral
	}
}

// SentimentResult 情绪分析分支的结果
type SentimentResult struct {
	Symbol      string
	Analysis    string  // LLM 对搜索结果的分析文本
	Polarity    float64 // [-1, 1]
	ResultCount int     // 实际使用的搜索结果数

	// Degraded 表示搜索或生成环节降级，分值可信度较低
	Degraded bool
	// ScoringFailed 表示情绪打分失败，Polarity 被置为 0
	ScoringFailed bool
	Reason        string
}

// ContractStatus 财务分析表格契约检查结果
type ContractStatus struct {
	Checked bool
	Valid   bool
	Issues  []string
}

// AnalysisReport 单次运行的最终报告
type AnalysisReport struct {
	RunID  string
	Symbol string
	AsOf   time.Time

	FinancialAnalysis string
	WebAnalysis       string
	Sentiment         float64
	Label             SentimentLabel

	SentimentDegraded bool
	SentimentNote     string

	// Unavailable 本次快照中缺失的行情类别
	Unavailable []Category
	Contract    ContractStatus
}
