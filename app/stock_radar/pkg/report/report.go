package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// Format 输出终端报告
func Format(r *model.AnalysisReport) string {
	var sb strings.Builder
	_ = Write(&sb, r)
	return sb.String()
}

// Write 按固定版式写出报告，缺失的数据用 [unavailable: ...] 标注
func Write(w io.Writer, r *model.AnalysisReport) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzing %s...\n", r.Symbol)

	sb.WriteString("\nFinancial Data Analysis:\n")
	sb.WriteString(strings.TrimRight(r.FinancialAnalysis, "\n"))
	sb.WriteByte('\n')
	if len(r.Unavailable) > 0 {
		labels := make([]string, 0, len(r.Unavailable))
		for _, c := range r.Unavailable {
			labels = append(labels, c.Label())
		}
		fmt.Fprintf(&sb, "[unavailable: %s]\n", strings.Join(labels, ", "))
	}
	if r.Contract.Checked && !r.Contract.Valid {
		fmt.Fprintf(&sb, "[format issues: %s]\n", strings.Join(r.Contract.Issues, "; "))
	}

	sb.WriteString("\nWeb Search and Sentiment Analysis:\n")
	if web := strings.TrimRight(r.WebAnalysis, "\n"); web != "" {
		sb.WriteString(web)
		sb.WriteByte('\n')
	}
	if r.SentimentDegraded {
		note := r.SentimentNote
		if note == "" {
			note = "sentiment analysis degraded"
		}
		fmt.Fprintf(&sb, "[unavailable: %s]\n", note)
	}

	fmt.Fprintf(&sb, "\nOverall Sentiment: %s\n", r.Label)
	fmt.Fprintf(&sb, "Sentiment Score: %.2f\n", r.Sentiment)

	_, err := io.WriteString(w, sb.String())
	return err
}
