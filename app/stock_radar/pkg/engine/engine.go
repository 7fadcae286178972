package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/tablecheck"
)

// MarketAggregator 汇总行情快照
type MarketAggregator interface {
	Name() string
	Aggregate(ctx context.Context, symbol string) (*model.MarketSnapshot, error)
}

// Generator 调用大模型，*llm.Generator 满足该接口
type Generator interface {
	Provider() string
	Model(kind prompt.Kind) string
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// SentimentAnalyzer 搜索情绪分支
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.SentimentResult, error)
}

// Options 引擎参数
type Options struct {
	// AsOf 分析基准日期，零值时取运行开始的当天
	AsOf time.Time
	// StrictTables 表格校验失败时整个运行失败
	StrictTables bool
}

// Engine 核心处理引擎
type Engine struct {
	market    MarketAggregator
	generator Generator
	sentiment SentimentAnalyzer
	opts      Options
	now       func() time.Time
}

// New 创建引擎实例，依赖由调用方构造
func New(market MarketAggregator, generator Generator, sentiment SentimentAnalyzer, opts Options) *Engine {
	return &Engine{
		market:    market,
		generator: generator,
		sentiment: sentiment,
		opts:      opts,
		now:       time.Now,
	}
}

// Run 并发执行财务分支和情绪分支，财务分支失败时返回 *model.BranchError
func (e *Engine) Run(ctx context.Context, symbol string) (*model.AnalysisReport, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}

	runID := uuid.NewString()
	asOf := e.asOf()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).WithField("symbol", symbol)
	log.Infof("开始分析，基准日期 %s", asOf.Format(time.DateOnly))
	start := time.Now()

	var (
		fin     *financialResult
		sent    *model.SentimentResult
		sentErr error
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		fin, err = e.runFinancial(gctx, symbol, asOf)
		return err
	})
	g.Go(func() error {
		// 情绪分支失败不影响整体结果
		sent, sentErr = e.sentiment.Analyze(gctx, symbol)
		if sentErr != nil {
			log.WithField("branch", model.BranchSentiment).Errorf("情绪分支降级: %v", sentErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithField("branch", model.BranchFinancial).Errorf("财务分支失败: %v", err)
		return nil, err
	}

	report := &model.AnalysisReport{
		RunID:             runID,
		Symbol:            symbol,
		AsOf:              asOf,
		FinancialAnalysis: fin.analysis,
		Unavailable:       fin.snapshot.UnavailableCategories(),
		Contract:          fin.contract,
	}
	switch {
	case sentErr != nil:
		report.SentimentDegraded = true
		report.SentimentNote = sentErr.Error()
	case sent != nil:
		report.WebAnalysis = sent.Analysis
		report.Sentiment = sent.Polarity
		report.SentimentDegraded = sent.Degraded || sent.ScoringFailed
		report.SentimentNote = sent.Reason
	}
	report.Label = model.LabelFor(report.Sentiment)

	log.Infof("分析完成，耗时 %v，情绪 %s (%.2f)", time.Since(start).Round(time.Millisecond), report.Label, report.Sentiment)
	return report, nil
}

type financialResult struct {
	snapshot *model.MarketSnapshot
	analysis string
	contract model.ContractStatus
}

// runFinancial 行情汇总 → 构造提示词 → 生成分析 → 表格校验
func (e *Engine) runFinancial(ctx context.Context, symbol string, asOf time.Time) (*financialResult, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"symbol": symbol, "branch": model.BranchFinancial})

	snap, err := e.market.Aggregate(ctx, symbol)
	if err != nil {
		kind := model.ErrProviderUnreachable
		if errors.Is(err, model.ErrDataUnavailable) {
			kind = model.ErrDataUnavailable
		}
		return nil, &model.BranchError{
			Symbol:   symbol,
			Branch:   model.BranchFinancial,
			Provider: e.market.Name(),
			Kind:     kind,
			Err:      err,
		}
	}
	if missing := snap.UnavailableCategories(); len(missing) > 0 {
		log.Warnf("行情数据缺失 %d 类: %v", len(missing), missing)
	}

	req := prompt.BuildFinancial(symbol, snap, asOf)
	analysis, err := e.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	contract := tablecheck.Check(analysis, asOf)
	if !contract.Valid {
		log.Warnf("财务分析格式不符: %s", strings.Join(contract.Issues, "; "))
		if e.opts.StrictTables {
			return nil, &model.BranchError{
				Symbol:     symbol,
				Branch:     model.BranchFinancial,
				Provider:   e.generator.Provider(),
				Model:      e.generator.Model(prompt.KindFinancial),
				PromptKind: string(prompt.KindFinancial),
				Kind:       model.ErrGenerationFailure,
				Err:        fmt.Errorf("table contract violated: %s", strings.Join(contract.Issues, "; ")),
			}
		}
	}

	return &financialResult{snapshot: snap, analysis: analysis, contract: contract}, nil
}

// asOf 运行开始时取一次，截断到天
func (e *Engine) asOf() time.Time {
	t := e.opts.AsOf
	if t.IsZero() {
		t = e.now()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
