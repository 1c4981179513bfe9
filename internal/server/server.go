package server

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"mango/internal/ai"
	"mango/internal/config"
	"mango/internal/handler"
	videoHandler "mango/internal/handler/video"
	"mango/internal/pkg/ark"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/pkg/keywords"
	"mango/internal/pkg/stability"
	"mango/internal/pkg/stock"
	"mango/internal/pkg/storage"
	"mango/internal/pkg/storagefactory"
	"mango/internal/pkg/tts"
	"mango/internal/repository/journal"
	progressRepo "mango/internal/repository/progress"
	"mango/internal/server/middleware"
	"mango/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	generator *service.GeneratorService
	library   *service.LibraryService
}

// New 创建服务器实例，完成全部依赖装配
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Pipeline.DataDir, 0o755); err != nil {
		return nil, err
	}

	// 外部客户端都是可选的，缺配置时对应能力降级或在任务中报错
	var aiClient *ai.Client
	if cfg.AI.APIKey != "" {
		c, err := ai.NewClient(context.Background(), &cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("LLM客户端初始化失败，相关能力不可用")
		} else {
			aiClient = c
			log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("LLM客户端就绪")
		}
	}

	var ttsClient *tts.Client
	if c, err := tts.NewClient(tts.Config{
		APIURL:  cfg.TTS.APIURL,
		APIKey:  cfg.TTS.APIKey,
		Timeout: cfg.TTS.Timeout,
	}); err != nil {
		log.Warn().Err(err).Msg("TTS客户端初始化失败，语音合成不可用")
	} else {
		ttsClient = c
	}

	var stabilityClient *stability.Client
	if cfg.Stability.APIKey != "" {
		c, err := stability.NewClient(stability.Config{
			APIKey:        cfg.Stability.APIKey,
			BaseURL:       cfg.Stability.BaseURL,
			Timeout:       cfg.Stability.Timeout,
			RetryAttempts: cfg.Pipeline.RetryAttempts,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Stability客户端初始化失败")
		} else {
			stabilityClient = c
		}
	}

	var arkImage *ark.ImageClient
	if cfg.Ark.APIKey != "" {
		c, err := ark.NewImageClient(ark.ImageConfig{
			APIKey:  cfg.Ark.APIKey,
			BaseURL: cfg.Ark.BaseURL,
			Model:   cfg.Ark.Model,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Ark图片客户端初始化失败")
		} else {
			arkImage = c
		}
	}

	var stockClient *stock.Client
	if cfg.Pexels.APIKey != "" {
		c, err := stock.NewClient(stock.Config{
			APIKey:  cfg.Pexels.APIKey,
			Timeout: cfg.Pexels.Timeout,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Pexels客户端初始化失败")
		} else {
			stockClient = c
		}
	}

	var archive storage.Storage
	if cfg.Storage.Type != "" {
		st, err := storagefactory.NewStorage(context.Background(), &cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("归档存储初始化失败，成品不归档")
		} else {
			archive = st
			log.Info().Str("type", st.GetStorageType()).Msg("归档存储就绪")
		}
	}

	ffmpegClient := ffmpeg.NewClient()
	journals, err := journal.NewJournalRepo(cfg.Pipeline.DataDir)
	if err != nil {
		return nil, err
	}
	progress := progressRepo.NewProgressRepo(cfg.Pipeline.OutputDir)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	scripts := service.NewScriptService(aiClient, cfg.Pipeline.MaxScriptRetries)
	audio := service.NewAudioService(ttsClient, ffmpegClient, cfg.Pipeline.ScriptChunkLimit)
	visuals := service.NewVisualService(
		stabilityClient, arkImage, stockClient, aiClient,
		keywords.NewExtractor(), &cfg.Video, &cfg.Pipeline, rng,
	)
	render := service.NewRenderService(ffmpegClient, &cfg.Video, rng)
	thumbs := service.NewThumbnailService(stabilityClient, ffmpegClient, &cfg.Video, rng)

	generator := service.NewGeneratorService(
		cfg, scripts, audio, visuals, render, thumbs, progress, journals, archive,
	)
	library := service.NewLibraryService(cfg.Pipeline.OutputDir, ffmpegClient, journals)

	srv := &Server{
		cfg:       cfg,
		engine:    engine,
		generator: generator,
		library:   library,
	}
	srv.setupRoutes()
	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS(s.cfg.Server.AllowedOrigins))

	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 成品静态文件
	s.engine.Static("/videos", s.cfg.Pipeline.OutputDir)

	videoHdl := videoHandler.NewHandler(s.generator, s.library)
	api := s.engine.Group("/api")
	{
		api.POST("/generate", videoHdl.Generate)
		api.GET("/progress/:progress_id", videoHdl.Progress)
		api.POST("/cleanup", videoHdl.CleanupStale)

		api.GET("/videos", videoHdl.List)
		api.DELETE("/videos/:name", videoHdl.Delete)
		api.GET("/metadata/:name", videoHdl.Metadata)
	}
}

// Run 启动服务器并等待关闭信号
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
