package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
)

// Backend 大模型服务商
type Backend interface {
	Name() string
	Complete(ctx context.Context, modelID string, msgs []prompt.Message) (string, error)
}

// Options Generator 参数
type Options struct {
	FinancialModel string
	SentimentModel string
	Timeout        time.Duration // 单次调用超时，0 表示不限
	Limiter        *rate.Limiter
	MaxRetries     int           // 仅对限流错误重试
	BaseDelay      time.Duration // 重试退避基数
}

// Generator 按提示词类别选模型并调用后端，返回原始文本
type Generator struct {
	backend Backend
	opts    Options
}

// NewGenerator 创建 Generator
func NewGenerator(backend Backend, opts Options) *Generator {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Generator{backend: backend, opts: opts}
}

// Provider 后端名称
func (g *Generator) Provider() string {
	return g.backend.Name()
}

// Model 返回某类提示词使用的模型
func (g *Generator) Model(kind prompt.Kind) string {
	if kind == prompt.KindSentiment {
		return g.opts.SentimentModel
	}
	return g.opts.FinancialModel
}

// Generate 调用大模型，失败时返回 *model.BranchError
func (g *Generator) Generate(ctx context.Context, req prompt.Request) (string, error) {
	modelID := g.Model(req.Kind)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"symbol":   req.Symbol,
		"provider": g.backend.Name(),
		"model":    modelID,
		"prompt":   req.Kind,
	})

	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if g.opts.Limiter != nil {
			if err := g.opts.Limiter.Wait(ctx); err != nil {
				return "", g.wrap(req, modelID, model.ErrProviderUnreachable, err)
			}
		}

		start := time.Now()
		text, err := g.complete(ctx, modelID, req.Messages)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", g.wrap(req, modelID, model.ErrGenerationFailure, errors.New("empty completion"))
			}
			log.Debugf("生成完成，耗时 %v，长度 %d", time.Since(start), len(text))
			return text, nil
		}

		lastErr = err
		if !IsRateLimited(err) || attempt == g.opts.MaxRetries {
			break
		}
		delay := g.opts.BaseDelay * time.Duration(1<<attempt)
		log.Warnf("触发限流，%v 后重试 (%d/%d): %v", delay, attempt+1, g.opts.MaxRetries, err)
		select {
		case <-ctx.Done():
			return "", g.wrap(req, modelID, model.ErrProviderUnreachable, ctx.Err())
		case <-time.After(delay):
		}
	}

	kind := Classify(lastErr)
	log.Errorf("生成失败: %v", lastErr)
	return "", g.wrap(req, modelID, kind, lastErr)
}

func (g *Generator) complete(ctx context.Context, modelID string, msgs []prompt.Message) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	return g.backend.Complete(ctx, modelID, msgs)
}

func (g *Generator) wrap(req prompt.Request, modelID string, kind, err error) error {
	branch := model.BranchFinancial
	if req.Kind == prompt.KindSentiment {
		branch = model.BranchSentiment
	}
	return &model.BranchError{
		Symbol:     req.Symbol,
		Branch:     branch,
		Provider:   g.backend.Name(),
		Model:      modelID,
		PromptKind: string(req.Kind),
		Kind:       kind,
		Err:        err,
	}
}
