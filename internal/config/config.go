package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Stability StabilityConfig `mapstructure:"stability"`
	Ark       ArkConfig       `mapstructure:"ark"`
	Pexels    PexelsConfig    `mapstructure:"pexels"`
	Video     VideoConfig     `mapstructure:"video"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // CORS 允许的来源
}

// AIConfig LLM 服务配置（脚本、元数据、关键词生成）
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig LLM 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// TTSConfig 语音合成配置 (ElevenLabs)
type TTSConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StabilityConfig Stability AI 图片生成配置
type StabilityConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ArkConfig 火山引擎 Ark 图片生成配置 (doubao-seedream)
type ArkConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// PexelsConfig Pexels 素材搜索配置
type PexelsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// VideoConfig 视频画布与节奏配置
type VideoConfig struct {
	Width             int     `mapstructure:"width"`               // 画布宽度
	Height            int     `mapstructure:"height"`              // 画布高度
	FPS               int     `mapstructure:"fps"`                 // 帧率
	IntroClipsCount   int     `mapstructure:"intro_clips_count"`   // 开场镜头数量
	IntroClipDuration float64 `mapstructure:"intro_clip_duration"` // 开场镜头时长（秒）
	ImageBuffer       int     `mapstructure:"image_buffer"`        // 额外备用素材数量
	EncodingPreset    string  `mapstructure:"encoding_preset"`     // x264 preset
	EncodingThreads   int     `mapstructure:"encoding_threads"`    // 编码线程数
	ThumbnailWidth    int     `mapstructure:"thumbnail_width"`     // 缩略图宽度
	ThumbnailHeight   int     `mapstructure:"thumbnail_height"`    // 缩略图高度
}

// PipelineConfig 生成流水线配置
type PipelineConfig struct {
	OutputDir           string `mapstructure:"output_dir"`            // 成品输出目录
	DataDir             string `mapstructure:"data_dir"`              // 进度/日志文件目录
	MaxConcurrentVideos int    `mapstructure:"max_concurrent_videos"` // 全局并发任务上限
	MaxImageWorkers     int    `mapstructure:"max_image_workers"`     // 图片生成并发上限
	MaxDownloadWorkers  int    `mapstructure:"max_download_workers"`  // 素材下载并发上限
	RetryAttempts       int    `mapstructure:"retry_attempts"`        // 素材获取重试轮数
	ScriptChunkLimit    int    `mapstructure:"script_chunk_limit"`    // TTS 单次请求字符上限
	MaxScriptRetries    int    `mapstructure:"max_script_retries"`    // 脚本生成重试次数
	KeywordCount        int    `mapstructure:"keyword_count"`         // 素材搜索关键词数量
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StorageConfig 成品归档存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 {
		return errors.New("invalid video canvas settings")
	}

	if c.Pipeline.MaxConcurrentVideos <= 0 {
		return errors.New("pipeline.max_concurrent_videos must be positive")
	}

	return nil
}
