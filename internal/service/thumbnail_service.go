package service

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/pkg/placeholder"
	"mango/internal/pkg/stability"
)

var thumbnailCountryRe = regexp.MustCompile(`(?i)think about ([\w\s]+)\?$`)

// ThumbnailService 封面图生成
// 依次尝试 AI 生成、成片抽帧、随机图片素材、占位图，逐级降级
type ThumbnailService struct {
	stability *stability.Client
	ffmpeg    *ffmpeg.Client
	videoCfg  *config.VideoConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewThumbnailService 创建封面服务
func NewThumbnailService(stabilityClient *stability.Client, ffmpegClient *ffmpeg.Client, videoCfg *config.VideoConfig, rng *rand.Rand) *ThumbnailService {
	return &ThumbnailService{
		stability: stabilityClient,
		ffmpeg:    ffmpegClient,
		videoCfg:  videoCfg,
		rng:       rng,
	}
}

// GenerateThumbnail 生成封面图，返回封面路径
func (s *ThumbnailService) GenerateThumbnail(ctx context.Context, job *model.Job, assets []string, script, projectDir string) string {
	thumbPath := filepath.Join(projectDir, "thumbnail.jpg")
	w, h := s.videoCfg.ThumbnailWidth, s.videoCfg.ThumbnailHeight

	if job.GenerationMode != model.GenerationModeStock && job.AIProvider == "stability" && s.stability != nil {
		if path, err := s.generateAIThumbnail(ctx, job, script, projectDir); err == nil {
			log.Info().Msg("AI封面生成成功")
			return path
		} else {
			log.Warn().Err(err).Msg("AI封面生成失败，改用成片素材")
		}
	}

	finalVideo := filepath.Join(projectDir, "final_video.mp4")
	if _, err := os.Stat(finalVideo); err == nil {
		if err := s.thumbnailFromVideo(ctx, finalVideo, thumbPath, w, h); err == nil {
			log.Info().Msg("封面取自成片画面")
			return thumbPath
		} else {
			log.Warn().Err(err).Msg("成片抽帧失败")
		}
	}

	if path := s.randomImageAsset(assets); path != "" {
		if err := s.ffmpeg.NormalizeImage(ctx, path, thumbPath, w, h); err == nil {
			log.Info().Msg("封面取自图片素材")
			return thumbPath
		}
	}

	// 最后兜底用渐变占位图
	s.mu.Lock()
	fallback, err := placeholder.Generate(0, projectDir, s.videoCfg.Width, s.videoCfg.Height, s.rng)
	s.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("生成占位封面失败")
		return ""
	}
	if err := s.ffmpeg.NormalizeImage(ctx, fallback, thumbPath, w, h); err != nil {
		return fallback
	}
	os.Remove(fallback)
	log.Info().Msg("使用占位封面")
	return thumbPath
}

func (s *ThumbnailService) generateAIThumbnail(ctx context.Context, job *model.Job, script, projectDir string) (string, error) {
	data, err := s.stability.GenerateThumbnailImage(ctx, thumbnailPrompt(job.Topic, script, job.StylePreset), job.StylePreset)
	if err != nil {
		return "", err
	}
	path := filepath.Join(projectDir, "thumbnail.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// thumbnailFromVideo 在成片四分之一处抽帧，太短则取接近结尾的位置
func (s *ThumbnailService) thumbnailFromVideo(ctx context.Context, videoPath, thumbPath string, w, h int) error {
	info, err := s.ffmpeg.GetVideoInfo(ctx, videoPath)
	if err != nil {
		return err
	}
	at := info.Duration * 0.25
	if at > info.Duration-0.1 {
		at = info.Duration - 0.1
	}
	if at <= 0 {
		return fmt.Errorf("video too short for frame extraction: %.2fs", info.Duration)
	}

	framePath := thumbPath + ".frame.jpg"
	if err := s.ffmpeg.ExtractFrame(ctx, videoPath, framePath, at); err != nil {
		return err
	}
	defer os.Remove(framePath)
	return s.ffmpeg.NormalizeImage(ctx, framePath, thumbPath, w, h)
}

func (s *ThumbnailService) randomImageAsset(assets []string) string {
	var images []string
	for _, a := range assets {
		if a == "" || !isImageAsset(a) {
			continue
		}
		if _, err := os.Stat(a); err == nil {
			images = append(images, a)
		}
	}
	if len(images) == 0 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		return images[0]
	}
	return images[s.rng.Intn(len(images))]
}

func thumbnailPrompt(topic, script, stylePreset string) string {
	excerpt := script
	if len(excerpt) > 250 {
		excerpt = excerpt[:250]
	}

	flagInstruction := ""
	if m := thumbnailCountryRe.FindStringSubmatch(topic); m != nil {
		flagInstruction = fmt.Sprintf("The image MUST prominently feature the national flag of %s.", titleCase(strings.TrimSpace(m[1])))
	}

	return fmt.Sprintf(`Create a hyper-realistic, 16:9 thumbnail image for a YouTube video about "%s".
The image should be visually stunning, intriguing, and emotionally evocative, with a single, clear focal point.
Focus on the core concept from this script excerpt: "%s".
%s
CRITICAL: The image must contain absolutely no text, letters, logos, or watermarks.
Style: %s, dramatic lighting, professional photography, ultra-detailed.
`, topic, excerpt, flagInstruction, stylePreset)
}
