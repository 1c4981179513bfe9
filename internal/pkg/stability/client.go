// Package stability 封装 Stability AI 图片生成 API 调用。
// sd3 端点用于批量素材图，ultra 端点用于缩略图。
package stability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.stability.ai"

// Config Stability 配置
type Config struct {
	APIKey        string        // API Key（必需）
	BaseURL       string        // API 地址，默认: https://api.stability.ai
	Timeout       time.Duration // 单次请求超时，默认 60s
	RetryAttempts int           // 单次调用内的重试次数，默认 3
}

// Client Stability AI 客户端
type Client struct {
	baseURL       string
	apiKey        string
	retryAttempts int
	httpClient    *http.Client
}

// NewClient 创建 Stability 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stability API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	retries := cfg.RetryAttempts
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		retryAttempts: retries,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

// GenerateImage 生成一张 16:9 素材图（sd3.5-large），返回 PNG 数据
func (c *Client) GenerateImage(ctx context.Context, prompt, stylePreset string) ([]byte, error) {
	fields := map[string]string{
		"prompt":          prompt,
		"negative_prompt": "text, letters, watermark, signature, numbers, blurry, low quality",
		"aspect_ratio":    "16:9",
		"model":           "sd3.5-large",
		"style_preset":    stylePreset,
		"output_format":   "png",
		"seed":            "0",
	}
	return c.generate(ctx, "/v2beta/stable-image/generate/sd3", fields)
}

// GenerateThumbnailImage 生成一张高质量缩略图（ultra 端点），返回 JPEG 数据
func (c *Client) GenerateThumbnailImage(ctx context.Context, prompt, stylePreset string) ([]byte, error) {
	fields := map[string]string{
		"prompt":          prompt,
		"negative_prompt": "text, letters, words, logo, watermark, signature, numbers, blurry, cartoon, amateur, ugly, deformed",
		"aspect_ratio":    "16:9",
		"style_preset":    stylePreset,
		"output_format":   "jpeg",
		"seed":            "0",
	}
	return c.generate(ctx, "/v2beta/stable-image/generate/ultra", fields)
}

// generate 发送 multipart 生成请求，带指数退避重试
func (c *Client) generate(ctx context.Context, path string, fields map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(2*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		data, err := c.doGenerate(ctx, path, fields)
		if err == nil {
			return data, nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("endpoint", path).
			Msg("stability image generation attempt failed")
	}

	return nil, fmt.Errorf("stability generation failed after %d attempts: %w", c.retryAttempts, lastErr)
}

func (c *Client) doGenerate(ctx context.Context, path string, fields map[string]string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("stability API status %d: %s", resp.StatusCode, string(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stability API returned empty image")
	}

	return data, nil
}
