package model

import (
	"errors"
	"fmt"
)

// 错误类别，配合 errors.Is 使用
var (
	// ErrDataUnavailable 某一类行情数据获取失败，不致命
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrProviderUnreachable 行情、搜索或 LLM 服务整体不可达
	ErrProviderUnreachable = errors.New("provider unreachable")
	// ErrGenerationFailure LLM 返回错误或空结果
	ErrGenerationFailure = errors.New("generation failure")
	// ErrSentimentScoring 情绪打分失败
	ErrSentimentScoring = errors.New("sentiment scoring failure")
)

// Branch 流水线分支
type Branch string

const (
	BranchFinancial Branch = "financial"
	BranchSentiment Branch = "sentiment"
)

// BranchError 携带诊断上下文的分支错误
type BranchError struct {
	Symbol     string
	Branch     Branch
	Provider   string
	Model      string
	PromptKind string
	Kind       error // 上面的错误类别之一
	Err        error
}

func (e *BranchError) Error() string {
	msg := fmt.Sprintf("%s branch failed for %s (provider=%s", e.Branch, e.Symbol, e.Provider)
	if e.Model != "" {
		msg += " model=" + e.Model
	}
	if e.PromptKind != "" {
		msg += " prompt=" + e.PromptKind
	}
	msg += ")"
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 同时暴露错误类别和底层原因
func (e *BranchError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
