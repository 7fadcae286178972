package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
)

// DefaultBaseURL Perplexity 的 OpenAI 兼容接口
const DefaultBaseURL = "https://api.perplexity.ai"

// EinoBackend 通过 eino 调用任意 OpenAI 兼容接口
type EinoBackend struct {
	chatModel einomodel.BaseChatModel
	maxTokens int
}

// NewEinoBackend 初始化 OpenAI 兼容的 ChatModel，defaultModel 在单次调用未指定模型时使用
func NewEinoBackend(ctx context.Context, baseURL, apiKey, defaultModel string, timeout time.Duration, maxTokens int) (*EinoBackend, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   defaultModel,
		Timeout: timeout,
	}
	if maxTokens > 0 {
		cfg.MaxTokens = &maxTokens
	}
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init chat model failed: %w", err)
	}
	return &EinoBackend{chatModel: chatModel, maxTokens: maxTokens}, nil
}

// NewEinoBackendWithModel 使用已有的 ChatModel
func NewEinoBackendWithModel(cm einomodel.BaseChatModel) *EinoBackend {
	return &EinoBackend{chatModel: cm}
}

func (b *EinoBackend) Name() string { return "openai" }

// Complete 实现 Backend
func (b *EinoBackend) Complete(ctx context.Context, modelID string, msgs []prompt.Message) (string, error) {
	messages := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		role := schema.User
		if m.Role == prompt.RoleSystem {
			role = schema.System
		}
		messages = append(messages, &schema.Message{Role: role, Content: m.Content})
	}

	var opts []einomodel.Option
	if modelID != "" {
		opts = append(opts, einomodel.WithModel(modelID))
	}

	resp, err := b.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}
