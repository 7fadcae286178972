package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market"
)

const (
	defaultBaseURL   = "https://query2.finance.yahoo.com"
	defaultCookieURL = "https://fc.yahoo.com"
	userAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client Yahoo Finance 行情源
// 报价、概况、评级和 K 线走 go-yfinance，报表、持仓、盈利预测和新闻走公开 JSON 接口
type Client struct {
	baseURL   string
	cookieURL string
	client    *http.Client

	// go-yfinance 单次请求超时 (秒)，ctx 取消后遗留的调用最多再跑这么久
	nativeTimeout int
	// go-yfinance 不支持代理，配置了代理时这部分请求仍直连
	nativeDirect bool

	mu    sync.Mutex
	crumb string
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 替换 JSON 接口地址，测试时指向 httptest
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCookieURL 替换获取 cookie 的地址
func WithCookieURL(u string) Option {
	return func(c *Client) { c.cookieURL = u }
}

// NewClient 创建 Yahoo 客户端，proxy 为空时不走代理
func NewClient(proxyURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL:   defaultBaseURL,
		cookieURL: defaultCookieURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			Jar:       jar,
		},
		nativeTimeout: timeoutSeconds(timeout),
		nativeDirect:  proxyURL != "",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.nativeDirect {
		logger.Log.Warnf("go-yfinance 不支持代理，报价/评级/概况/K 线请求不经过 %s", proxyURL)
	}
	return c
}

// timeoutSeconds 向上取整到秒，至少 1 秒
func timeoutSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Ensure Client implements market.Provider
var _ market.Provider = (*Client)(nil)

func (c *Client) Name() string { return "yahoo" }

// getJSON 请求 JSON 接口并解码为通用 map
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (map[string]interface{}, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo api error (status %d): %s", resp.StatusCode, truncateBody(body))
	}

	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return out, nil
}

// ensureCrumb 获取 quoteSummary 需要的 crumb，失败时返回空串继续请求
func (c *Client) ensureCrumb(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" {
		return c.crumb
	}

	// 先拿 cookie，状态码无所谓
	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil); err == nil {
		req.Header.Set("User-Agent", userAgent)
		if resp, err := c.client.Do(req); err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	c.crumb = strings.TrimSpace(string(body))
	return c.crumb
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// 以下是从 map 中安全取值的辅助函数

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat64(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// getRaw 读取 {"raw": 1.2, "fmt": "1.2"} 形式的数值
func getRaw(m map[string]interface{}, key string) float64 {
	if inner := getMap(m, key); inner != nil {
		return getFloat64(inner, "raw")
	}
	return getFloat64(m, key)
}

// getFmt 读取 {"raw": ..., "fmt": "2024-12-31"} 中的格式化文本
func getFmt(m map[string]interface{}, key string) string {
	if inner := getMap(m, key); inner != nil {
		return getString(inner, "fmt")
	}
	return getString(m, key)
}
