package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

const (
	// 摘要短于该长度时抓取原文
	minSnippetLen = 500
	maxContentLen = 2000
)

// Enricher 摘要过短时抓取原文，提取正文后转为 markdown
type Enricher struct {
	client    *http.Client
	converter *md.Converter
	workers   int
}

// NewEnricher 创建 Enricher
func NewEnricher(timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Enricher{
		client:    &http.Client{Timeout: timeout},
		converter: md.NewConverter("", true, nil),
		workers:   4,
	}
}

// Enrich 原地替换 Content，单条失败时保留原摘要
func (e *Enricher) Enrich(ctx context.Context, articles []model.Article) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range articles {
		if len(articles[i].Content) >= minSnippetLen || articles[i].Link == "" {
			continue
		}
		g.Go(func() error {
			content, err := e.fetch(ctx, articles[i].Link)
			if err != nil {
				logger.FromContext(ctx).Debugf("抓取原文失败 [%s]: %v", articles[i].Link, err)
				return nil
			}
			if len(content) > len(articles[i].Content) {
				articles[i].Content = model.Truncate(content, maxContentLen)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Enricher) fetch(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", link, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extract article failed: %w", err)
	}

	text, err := e.converter.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(text) == "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return strings.TrimSpace(text), nil
}
