package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

// QueryTemplate 搜索关键词模板
const QueryTemplate = "%s stock news latest financial sheets technical indicators"

// Generator 调用大模型生成分析文本
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// Scorer 对文本打出 [-1, 1] 的情绪分
type Scorer interface {
	Polarity(text string) (float64, error)
}

// Options 分析器参数
type Options struct {
	MaxResults    int
	SearchTimeout time.Duration
}

// Analyzer 搜索 → 生成分析 → 情绪打分
type Analyzer struct {
	searcher  search.Searcher
	generator Generator
	scorer    Scorer
	enricher  *Enricher
	opts      Options
}

// NewAnalyzer 创建分析器，enricher 可以为 nil
func NewAnalyzer(searcher search.Searcher, generator Generator, scorer Scorer, enricher *Enricher, opts Options) *Analyzer {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	return &Analyzer{
		searcher:  searcher,
		generator: generator,
		scorer:    scorer,
		enricher:  enricher,
		opts:      opts,
	}
}

// Query 生成某只股票的搜索关键词
func Query(symbol string) string {
	return fmt.Sprintf(QueryTemplate, symbol)
}

// Analyze 只有 LLM 调用失败时返回错误，搜索失败和打分失败都降级处理
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*model.SentimentResult, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"symbol": symbol, "branch": model.BranchSentiment})
	res := &model.SentimentResult{Symbol: symbol}

	articles, err := a.search(ctx, symbol)
	switch {
	case err != nil:
		log.Warnf("搜索失败，以空结果继续: %v", err)
		res.Degraded = true
		res.Reason = err.Error()
	case len(articles) == 0:
		log.Warn("未搜索到结果")
		res.Degraded = true
		res.Reason = "no search results"
	}
	res.ResultCount = len(articles)

	text, err := a.generator.Generate(ctx, prompt.BuildSentiment(symbol, articles))
	if err != nil {
		return nil, err
	}
	res.Analysis = text

	polarity, err := a.scorer.Polarity(text)
	if err != nil {
		log.Warnf("情绪打分失败，分值记为 0: %v", err)
		res.ScoringFailed = true
		res.Polarity = 0
		res.Reason = joinReason(res.Reason, fmt.Errorf("%w: %w", model.ErrSentimentScoring, err).Error())
		return res, nil
	}
	res.Polarity = clamp(polarity)
	log.Infof("情绪分析完成，结果 %d 条，分值 %.2f", res.ResultCount, res.Polarity)
	return res, nil
}

func (a *Analyzer) search(ctx context.Context, symbol string) ([]model.Article, error) {
	if a.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.SearchTimeout)
		defer cancel()
	}

	resp, err := a.searcher.Search(ctx, &search.Request{
		Query:      Query(symbol),
		Topic:      "news",
		MaxResults: a.opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w: %w", model.ErrProviderUnreachable, err)
	}
	resp.Limit(a.opts.MaxResults)

	articles := make([]model.Article, 0, len(resp.Results))
	for _, r := range resp.Results {
		content := r.Content
		if content == "" {
			content = r.RawContent
		}
		articles = append(articles, model.Article{
			Title:   r.Title,
			Link:    r.URL,
			Source:  r.Source,
			PubDate: r.PublishedDate,
			Content: content,
		})
	}
	if a.enricher != nil {
		a.enricher.Enrich(ctx, articles)
	}
	return articles, nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return strings.Join([]string{a, b}, "; ")
}
