package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// HTMLData 用于模板渲染的数据
type HTMLData struct {
	Report      *model.AnalysisReport
	Date        string
	Financial   template.HTML
	Web         template.HTML
	Unavailable []string
	ScoreClass  string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// WriteHTML 渲染 HTML 报告到 path
func WriteHTML(path string, r *model.AnalysisReport) error {
	data, err := newHTMLData(r)
	if err != nil {
		return err
	}

	t, err := template.New("report").Parse(htmlTpl)
	if err != nil {
		return fmt.Errorf("parse template failed: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory failed: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", path, err)
	}
	defer f.Close()

	return t.Execute(f, data)
}

func newHTMLData(r *model.AnalysisReport) (*HTMLData, error) {
	financial, err := renderMarkdown(r.FinancialAnalysis)
	if err != nil {
		return nil, err
	}
	web, err := renderMarkdown(r.WebAnalysis)
	if err != nil {
		return nil, err
	}

	data := &HTMLData{
		Report:    r,
		Date:      r.AsOf.Format(time.DateOnly),
		Financial: financial,
		Web:       web,
	}
	for _, c := range r.Unavailable {
		data.Unavailable = append(data.Unavailable, c.Label())
	}
	switch r.Label {
	case model.Positive:
		data.ScoreClass = "score-positive"
	case model.Negative:
		data.ScoreClass = "score-negative"
	default:
		data.ScoreClass = "score-neutral"
	}
	return data, nil
}

// renderMarkdown LLM 输出按 markdown 渲染，其中的原始 HTML 会被丢弃
func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown failed: %w", err)
	}
	return template.HTML(buf.String()), nil
}

const htmlTpl = `
<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>股票雷达 | {{.Report.Symbol}}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 40px; padding: 20px 0; }
        h1 { font-size: 2.5rem; margin: 0 0 10px 0; }
        .date-info { color: var(--text-secondary); }
        .card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 30px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.05);
            border: 1px solid var(--border-color);
        }
        .card h2 { margin-top: 0; border-bottom: 2px solid var(--primary-color); padding-bottom: 10px; display: inline-block; }
        table { border-collapse: collapse; width: 100%; margin: 16px 0; }
        th, td { border: 1px solid var(--border-color); padding: 6px 10px; text-align: left; }
        th { background: #f1f5f9; }
        .notice { background: #fef2f2; border-left: 4px solid #ef4444; padding: 10px 14px; border-radius: 6px; color: #991b1b; }
        .score { padding: 4px 12px; border-radius: 20px; font-weight: bold; }
        .score-positive { background: #dcfce7; color: #166534; }
        .score-negative { background: #fee2e2; color: #991b1b; }
        .score-neutral { background: #e2e8f0; color: #334155; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>📈 {{.Report.Symbol}} 分析报告</h1>
            <div class="date-info">{{.Date}} • 运行 {{.Report.RunID}}</div>
        </header>

        <div class="card">
            <h2>Financial Data Analysis</h2>
            {{.Financial}}
            {{if .Unavailable}}
            <div class="notice">unavailable: {{range $i, $c := .Unavailable}}{{if $i}}, {{end}}{{$c}}{{end}}</div>
            {{end}}
            {{if and .Report.Contract.Checked (not .Report.Contract.Valid)}}
            <div class="notice">format issues:
                <ul>{{range .Report.Contract.Issues}}<li>{{.}}</li>{{end}}</ul>
            </div>
            {{end}}
        </div>

        <div class="card">
            <h2>Web Search and Sentiment Analysis</h2>
            {{.Web}}
            {{if .Report.SentimentDegraded}}
            <div class="notice">unavailable: {{.Report.SentimentNote}}</div>
            {{end}}
            <p>Overall Sentiment: <span class="score {{.ScoreClass}}">{{.Report.Label}}</span></p>
            <p>Sentiment Score: {{printf "%.2f" .Report.Sentiment}}</p>
        </div>
    </div>
</body>
</html>
`
