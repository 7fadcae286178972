package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// APIError 携带 HTTP 状态码的服务商错误
type APIError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

var statusPattern = regexp.MustCompile(`(?i)status(?:\s*code)?\s*[:=]?\s*(\d{3})`)

// StatusCode 从错误中提取 HTTP 状态码，未知时返回 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if err == nil {
		return 0
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// IsRateLimited 是否为限流错误
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if StatusCode(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit")
}

// Classify 鉴权、网络和超时错误视为服务不可达，其余视为生成失败
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.ErrProviderUnreachable
	}
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.ErrProviderUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.ErrProviderUnreachable
	}
	return model.ErrGenerationFailure
}
