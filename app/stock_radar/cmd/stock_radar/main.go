package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/engine"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/llm"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	marketfactory "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market/factory"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/report"
	searchfactory "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search/factory"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/sentiment"
)

func main() {
	// 1. 加载配置
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 命令行参数优先于 STOCK_SYMBOL 和配置文件
	symbol := cfg.Symbol
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		symbol = os.Args[1]
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动股票雷达...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asOf, err := cfg.AsOfDate()
	if err != nil {
		logger.Log.Fatalf("配置错误: %v", err)
	}

	// 3. 初始化依赖
	aggregator, err := marketfactory.NewAggregator(cfg)
	if err != nil {
		logger.Log.Fatalf("行情数据源初始化失败: %v", err)
	}

	generator, err := llm.NewGeneratorFromConfig(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("LLM 初始化失败: %v", err)
	}
	logger.Log.Infof("LLM 已配置: provider=%s financial=%s sentiment=%s",
		generator.Provider(), cfg.LLM.FinancialModel, cfg.LLM.SentimentModel)

	searcher, err := searchfactory.NewSearcher(cfg)
	if err != nil {
		logger.Log.Fatalf("搜索客户端初始化失败: %v", err)
	}
	var enricher *sentiment.Enricher
	if cfg.Search.FetchContent {
		enricher = sentiment.NewEnricher(cfg.SearchTimeout())
	}
	scorer, err := sentiment.NewScorer(cfg.Sentiment.Scorer)
	if err != nil {
		logger.Log.Fatalf("情绪打分器初始化失败: %v", err)
	}
	analyzer := sentiment.NewAnalyzer(searcher, generator, scorer, enricher, sentiment.Options{
		MaxResults:    cfg.Search.MaxResults,
		SearchTimeout: cfg.SearchTimeout(),
	})

	eng := engine.New(aggregator, generator, analyzer, engine.Options{
		AsOf:         asOf,
		StrictTables: cfg.LLM.StrictTables,
	})

	// 4. 执行分析
	r, err := eng.Run(ctx, symbol)
	if err != nil {
		logger.Log.Fatalf("分析失败: %v", err)
	}

	if err := report.Write(os.Stdout, r); err != nil {
		logger.Log.Fatalf("输出报告失败: %v", err)
	}

	// 5. 生成 HTML
	if cfg.Output.HTMLFile != "" {
		if err := report.WriteHTML(cfg.Output.HTMLFile, r); err != nil {
			logger.Log.Fatalf("生成 HTML 失败: %v", err)
		}
		logger.Log.Infof("HTML 报告已生成: %s", cfg.Output.HTMLFile)
	}
}
