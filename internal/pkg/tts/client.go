// Package tts 封装 ElevenLabs 文本转语音 API 调用。
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultAPIURL = "https://api.elevenlabs.io"

// Config TTS 配置
type Config struct {
	APIURL  string        // API 地址，默认: https://api.elevenlabs.io
	APIKey  string        // API Key（必需）
	Timeout time.Duration // 单次请求超时，默认 60s
}

// Client ElevenLabs TTS 客户端
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("TTS API key is required")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiURL: apiURL,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// synthesizeRequest 语音合成请求体
type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id,omitempty"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize 合成一段旁白音频，返回音频二进制数据（mp3）
func (c *Client) Synthesize(ctx context.Context, text, voiceID, modelID string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	reqBody, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.apiURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	log.Debug().
		Str("voice_id", voiceID).
		Str("model_id", modelID).
		Int("text_len", len(text)).
		Msg("sending TTS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS API request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS API returned empty audio")
	}

	return audio, nil
}
