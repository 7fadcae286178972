package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Client 抓取 DuckDuckGo 的 HTML 结果页，无需 API Key
type Client struct {
	endpoint string
	client   *http.Client
}

// Option 客户端选项
type Option func(*Client)

// WithEndpoint 替换结果页地址
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// NewClient 创建 DuckDuckGo 客户端
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	form := url.Values{}
	form.Set("q", req.Query)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("duckduckgo error (status %d): %s", res.StatusCode, string(body))
	}

	results, err := parseResults(res.Body)
	if err != nil {
		return nil, err
	}
	resp := &search.Response{Results: results}
	resp.Limit(req.MaxResults)
	return resp, nil
}

// parseResults 解析结果页，跳过广告
func parseResults(r io.Reader) ([]search.Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html failed: %w", err)
	}

	var results []search.Result
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		link := s.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}
		results = append(results, search.Result{
			Title:         title,
			URL:           resolveLink(href),
			Source:        strings.TrimSpace(s.Find(".result__url").First().Text()),
			Content:       strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
			PublishedDate: strings.TrimSpace(s.Find(".result__timestamp").First().Text()),
		})
	})
	return results, nil
}

// resolveLink 还原 //duckduckgo.com/l/?uddg= 形式的跳转链接
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
