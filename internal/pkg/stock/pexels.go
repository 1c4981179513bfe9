// Package stock 封装 Pexels 素材库的搜索与下载。
// 同一个关键词同时搜视频和图片；下载带大小校验，避免把错误页当成素材。
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	videoSearchURL = "https://api.pexels.com/videos/search"
	photoSearchURL = "https://api.pexels.com/v1/search"

	// 小于该字节数的下载结果视为无效（通常是错误页或截断）
	minAssetSize = 1000
)

// AssetType 素材类型
type AssetType string

const (
	AssetTypeVideo AssetType = "video" // 视频素材
	AssetTypeImage AssetType = "image" // 图片素材
)

// Asset 一条可下载的素材
type Asset struct {
	Type AssetType // 素材类型
	URL  string    // 下载地址
	ID   string    // 提供商内唯一标识（用于去重）
}

// Config Pexels 配置
type Config struct {
	APIKey  string        // API Key（必需）
	Timeout time.Duration // 单次请求超时，默认 15s
}

// Client Pexels 客户端
type Client struct {
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建 Pexels 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pexels API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type videoSearchResponse struct {
	Videos []struct {
		ID         int64 `json:"id"`
		VideoFiles []struct {
			Width int    `json:"width"`
			Link  string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

type photoSearchResponse struct {
	Photos []struct {
		ID  int64 `json:"id"`
		Src struct {
			Large2x string `json:"large2x"`
		} `json:"src"`
	} `json:"photos"`
}

// Search 按关键词搜索素材（视频 + 图片各 perPage 条）。
// 单个端点失败只记日志，不让整个搜索失败。
func (c *Client) Search(ctx context.Context, query string, perPage int) []Asset {
	var assets []Asset

	videos, err := c.searchVideos(ctx, query, perPage)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("pexels video search failed")
	} else {
		assets = append(assets, videos...)
	}

	photos, err := c.searchPhotos(ctx, query, perPage)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("pexels photo search failed")
	} else {
		assets = append(assets, photos...)
	}

	return assets
}

func (c *Client) searchVideos(ctx context.Context, query string, perPage int) ([]Asset, error) {
	params := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(perPage)},
		"orientation": {"landscape"},
		"size":        {"medium"},
	}

	var result videoSearchResponse
	if err := c.getJSON(ctx, videoSearchURL, params, &result); err != nil {
		return nil, err
	}

	var assets []Asset
	for _, v := range result.Videos {
		// 选 1280-1920 宽度的 HD 文件，过大浪费带宽，过小画质不够
		for _, f := range v.VideoFiles {
			if f.Width >= 1280 && f.Width <= 1920 && f.Link != "" {
				assets = append(assets, Asset{
					Type: AssetTypeVideo,
					URL:  f.Link,
					ID:   fmt.Sprintf("pexels_v_%d", v.ID),
				})
				break
			}
		}
	}
	return assets, nil
}

func (c *Client) searchPhotos(ctx context.Context, query string, perPage int) ([]Asset, error) {
	params := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(perPage)},
		"orientation": {"landscape"},
	}

	var result photoSearchResponse
	if err := c.getJSON(ctx, photoSearchURL, params, &result); err != nil {
		return nil, err
	}

	var assets []Asset
	for _, p := range result.Photos {
		if p.Src.Large2x == "" {
			continue
		}
		assets = append(assets, Asset{
			Type: AssetTypeImage,
			URL:  p.Src.Large2x,
			ID:   fmt.Sprintf("pexels_i_%d", p.ID),
		})
	}
	return assets, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pexels API status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Download 把素材下载到 destDir，文件名携带槽位下标和素材标识。
// 返回本地路径；已存在且大小合法的文件直接复用。
func (c *Client) Download(ctx context.Context, index int, asset Asset, destDir string) (string, error) {
	ext := "jpg"
	if asset.Type == AssetTypeVideo {
		ext = "mp4"
	}
	destPath := filepath.Join(destDir, fmt.Sprintf("asset_%d_%s.%s", index, asset.ID, ext))

	if info, err := os.Stat(destPath); err == nil && info.Size() > minAssetSize {
		return destPath, nil
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		if err := c.downloadOnce(ctx, asset.URL, destPath); err != nil {
			lastErr = err
			continue
		}
		return destPath, nil
	}

	return "", fmt.Errorf("download %s: %w", asset.ID, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, srcURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err != nil || closeErr != nil || written <= minAssetSize {
		os.Remove(destPath)
		if err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		if closeErr != nil {
			return fmt.Errorf("close file: %w", closeErr)
		}
		return fmt.Errorf("downloaded file too small: %d bytes", written)
	}

	return nil
}
