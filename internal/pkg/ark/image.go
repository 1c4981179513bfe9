// Package ark 封装火山引擎 Ark 图片生成 API（doubao-seedream）。
// ai_provider 选择 "ark" 时作为素材图与缩略图的生成后端。
package ark

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

const (
	defaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultModel   = "doubao-seedream-3-0-t2i-250415"

	// 横屏画布：素材图统一走 16:9
	landscapeSize = "1280x720"
)

// ImageConfig Ark 图片生成配置
type ImageConfig struct {
	APIKey  string // API Key（必需）
	BaseURL string // API 基础 URL（可选）
	Model   string // 模型名称（可选）
}

// ImageClient Ark 图片生成客户端
type ImageClient struct {
	client *arkruntime.Client
	model  string
}

// NewImageClient 创建 Ark 图片生成客户端
func NewImageClient(cfg ImageConfig) (*ImageClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	arkClient := arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(baseURL))

	return &ImageClient{
		client: arkClient,
		model:  modelName,
	}, nil
}

// GenerateImage 生成一张横屏素材图，返回图片二进制数据
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	size := landscapeSize
	responseFormat := "b64_json"
	watermark := false

	input := model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         prompt,
		Size:           &size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := c.client.GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("failed to call Ark GenerateImages API")
		return nil, fmt.Errorf("ark GenerateImages API call failed: %w", err)
	}

	if len(output.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}

	firstImage := output.Data[0]
	if firstImage.B64Json == nil {
		return nil, fmt.Errorf("no b64_json in response data")
	}

	imageData, err := base64.StdEncoding.DecodeString(*firstImage.B64Json)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image data: %w", err)
	}

	return imageData, nil
}
