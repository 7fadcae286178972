package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
)

// GeminiBackend Google Gemini API
type GeminiBackend struct {
	client    *genai.Client
	maxTokens int
}

// NewGeminiBackend 创建 Gemini 后端
func NewGeminiBackend(ctx context.Context, apiKey string, maxTokens int) (*GeminiBackend, error) {
	return NewGeminiBackendWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, maxTokens)
}

// NewGeminiBackendWithConfig 使用自定义客户端配置，可覆盖 HTTPOptions.BaseURL
func NewGeminiBackendWithConfig(ctx context.Context, cc *genai.ClientConfig, maxTokens int) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("init gemini client failed: %w", err)
	}
	return &GeminiBackend{client: client, maxTokens: maxTokens}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

// Complete 实现 Backend
func (b *GeminiBackend) Complete(ctx context.Context, modelID string, msgs []prompt.Message) (string, error) {
	config := &genai.GenerateContentConfig{}
	if b.maxTokens > 0 {
		config.MaxOutputTokens = int32(b.maxTokens)
	}

	var contents []*genai.Content
	for _, m := range msgs {
		if m.Role == prompt.RoleSystem {
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	resp, err := b.client.Models.GenerateContent(ctx, modelID, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &APIError{Provider: b.Name(), StatusCode: apiErr.Code, Err: err}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			return "", &APIError{Provider: b.Name(), StatusCode: apiErrPtr.Code, Err: err}
		}
		return "", err
	}
	return resp.Text(), nil
}
