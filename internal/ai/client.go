// Package ai 封装 LLM 能力（Eino ChatModel）。
// 脚本、元数据、素材搜索关键词的生成都走这一个客户端。
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"mango/internal/config"
)

// Client LLM 客户端
type Client struct {
	chatModel model.ChatModel
}

// NewClient 创建 LLM 客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	return &Client{chatModel: chatModel}, nil
}

// NewClientWithModel 用现成的 ChatModel 创建客户端（测试用）
func NewClientWithModel(chatModel model.ChatModel) *Client {
	return &Client{chatModel: chatModel}
}

// Generate 根据提示词生成文本
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.chatModel == nil {
		return "", fmt.Errorf("chat model is not configured")
	}

	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}

	response, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}

	if response.Content == "" {
		return "", fmt.Errorf("empty response from chat model")
	}

	return response.Content, nil
}

// newChatModel 创建 ChatModel
// 支持 openai / azure（BaseURL + ByAzure）
func newChatModel(ctx context.Context, cfg *config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIChatModel(ctx, cfg, false)
	case "azure":
		return newOpenAIChatModel(ctx, cfg, true)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, byAzure bool) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		ByAzure: byAzure,
	}

	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	if cfg.Options.Temperature > 0 {
		temp := float32(cfg.Options.Temperature)
		modelCfg.Temperature = &temp
	}
	if cfg.Options.MaxTokens > 0 {
		modelCfg.MaxTokens = &cfg.Options.MaxTokens
	}
	if cfg.Options.TopP > 0 {
		topP := float32(cfg.Options.TopP)
		modelCfg.TopP = &topP
	}

	return openai.NewChatModel(ctx, modelCfg)
}
