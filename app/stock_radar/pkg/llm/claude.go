package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
)

// ClaudeBackend Anthropic Messages API
type ClaudeBackend struct {
	client    anthropic.Client
	maxTokens int
}

// NewClaudeBackend 创建 Claude 后端
func NewClaudeBackend(apiKey string, maxTokens int, opts ...option.RequestOption) *ClaudeBackend {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeBackend{
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
	}
}

func (b *ClaudeBackend) Name() string { return "claude" }

// Complete 实现 Backend
func (b *ClaudeBackend) Complete(ctx context.Context, modelID string, msgs []prompt.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(b.maxTokens),
	}
	for _, m := range msgs {
		if m.Role == prompt.RoleSystem {
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{Provider: b.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
