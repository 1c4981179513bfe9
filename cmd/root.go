package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mango/internal/config"
	"mango/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mango",
	Short: "Mango - automated narrated video generation service",
	Long: `Mango turns a topic into a finished narrated video.
It writes the script with an LLM, voices it with TTS, gathers stock or
AI-generated visuals, and composes everything into an upload-ready video.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 里的密钥先注入环境，再走 viper 的环境变量映射
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.mango")
	}

	// 环境变量设置
	viper.SetEnvPrefix("MANGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.options.temperature", 0.7)
	viper.SetDefault("ai.options.max_tokens", 1500)
	viper.SetDefault("ai.options.top_p", 1.0)

	// TTS
	viper.SetDefault("tts.api_url", "https://api.elevenlabs.io")
	viper.SetDefault("tts.timeout", "60s")

	// Stability
	viper.SetDefault("stability.base_url", "https://api.stability.ai")
	viper.SetDefault("stability.timeout", "60s")

	// Ark
	viper.SetDefault("ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	viper.SetDefault("ark.model", "doubao-seedream-3-0-t2i-250415")

	// Pexels
	viper.SetDefault("pexels.timeout", "15s")

	// Video
	viper.SetDefault("video.width", 1920)
	viper.SetDefault("video.height", 1080)
	viper.SetDefault("video.fps", 30)
	viper.SetDefault("video.intro_clips_count", 4)
	viper.SetDefault("video.intro_clip_duration", 7.0)
	viper.SetDefault("video.image_buffer", 3)
	viper.SetDefault("video.encoding_preset", "veryfast")
	viper.SetDefault("video.encoding_threads", 4)
	viper.SetDefault("video.thumbnail_width", 1280)
	viper.SetDefault("video.thumbnail_height", 720)

	// Pipeline
	viper.SetDefault("pipeline.output_dir", "./videos")
	viper.SetDefault("pipeline.data_dir", "./data")
	viper.SetDefault("pipeline.max_concurrent_videos", 8)
	viper.SetDefault("pipeline.max_image_workers", 8)
	viper.SetDefault("pipeline.max_download_workers", 8)
	viper.SetDefault("pipeline.retry_attempts", 3)
	viper.SetDefault("pipeline.script_chunk_limit", 9500)
	viper.SetDefault("pipeline.max_script_retries", 3)
	viper.SetDefault("pipeline.keyword_count", 7)

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
