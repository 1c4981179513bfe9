package service

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/pkg/placeholder"
	"mango/internal/pkg/shotplan"
)

// RenderService 视频合成
// 按镜头计划把素材拼成与旁白等长的视频，素材不足时循环复用
type RenderService struct {
	ffmpeg   *ffmpeg.Client
	videoCfg *config.VideoConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRenderService 创建合成服务
func NewRenderService(ffmpegClient *ffmpeg.Client, videoCfg *config.VideoConfig, rng *rand.Rand) *RenderService {
	return &RenderService{
		ffmpeg:   ffmpegClient,
		videoCfg: videoCfg,
		rng:      rng,
	}
}

// RenderVideo 合成最终视频，返回成品路径
func (s *RenderService) RenderVideo(ctx context.Context, assets []string, audioPath, projectDir string, settings model.VideoSettings) (string, error) {
	info, err := s.ffmpeg.GetAudioInfo(ctx, audioPath)
	if err != nil {
		return "", model.NewRenderError("probe narration audio failed", err)
	}
	totalDuration := info.Duration
	log.Info().Float64("duration", totalDuration).Msg("开始合成视频")

	sequence := s.orderAssets(assets)
	if len(sequence) == 0 {
		log.Warn().Msg("没有可用素材，使用占位图")
		sequence = s.fallbackAssets(projectDir)
		if len(sequence) == 0 {
			return "", model.NewRenderError("no usable assets for rendering", nil)
		}
	}

	clipsDir := filepath.Join(projectDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return "", model.NewRenderError("create clips dir failed", err)
	}
	// 中间镜头文件无论成败都清掉
	defer os.RemoveAll(clipsDir)

	shots := shotplan.Plan(
		totalDuration,
		s.videoCfg.IntroClipsCount,
		s.videoCfg.IntroClipDuration,
		settings.ClipDuration,
	)

	var clipPaths []string
	clipNumber := 0
	failures := 0
	for shotIdx := 0; shotIdx < len(shots); {
		shot := shots[shotIdx]
		asset := sequence[clipNumber%len(sequence)]
		clipPath, err := s.buildClip(ctx, asset, shot.Duration, clipsDir, clipNumber)
		clipNumber++
		if err != nil {
			// 坏素材跳过，用下一个素材补同一个镜头位
			log.Warn().Err(err).Str("asset", filepath.Base(asset)).Msg("素材处理失败，跳过")
			failures++
			if failures >= len(sequence) {
				break
			}
			continue
		}
		failures = 0
		clipPaths = append(clipPaths, clipPath)
		shotIdx++
	}

	if len(clipPaths) == 0 {
		return "", model.NewRenderError("no valid clips could be processed", nil)
	}

	silentPath := filepath.Join(clipsDir, "composed.mp4")
	if err := s.ffmpeg.ConcatClips(ctx, clipPaths, silentPath); err != nil {
		return "", model.NewRenderError("concat clips failed", err)
	}

	outputPath := filepath.Join(projectDir, "final_video.mp4")
	if err := s.ffmpeg.AttachAudio(ctx, silentPath, audioPath, outputPath,
		s.videoCfg.EncodingPreset, s.videoCfg.EncodingThreads); err != nil {
		// 避免留下半截成品
		os.Remove(outputPath)
		return "", model.NewRenderError("final encode failed", err)
	}

	log.Info().Str("path", outputPath).Int("clips", len(clipPaths)).Msg("视频合成完成")
	return outputPath, nil
}

// buildClip 把单个素材转成指定时长的统一规格镜头
func (s *RenderService) buildClip(ctx context.Context, asset string, duration float64, clipsDir string, number int) (string, error) {
	out := filepath.Join(clipsDir, "clip_"+strconv.Itoa(number)+".mp4")
	w, h, fps := s.videoCfg.Width, s.videoCfg.Height, s.videoCfg.FPS

	if !isVideoAsset(asset) {
		if err := s.ffmpeg.CreateImageClip(ctx, asset, out, duration, w, h, fps); err != nil {
			return "", err
		}
		return out, nil
	}

	info, err := s.ffmpeg.GetVideoInfo(ctx, asset)
	if err != nil {
		return "", err
	}
	switch {
	case info.Duration > duration:
		// 随机选取片段起点，避免每次都从头截取
		start := s.randFloat() * (info.Duration - duration)
		if err := s.ffmpeg.ExtractSubClip(ctx, asset, out, start, duration, w, h, fps); err != nil {
			return "", err
		}
	case info.Duration < duration:
		if err := s.ffmpeg.LoopClip(ctx, asset, out, duration, w, h, fps); err != nil {
			return "", err
		}
	default:
		if err := s.ffmpeg.ExtractSubClip(ctx, asset, out, 0, duration, w, h, fps); err != nil {
			return "", err
		}
	}
	return out, nil
}

// orderAssets 过滤掉缺失文件，按视频在前图片在后、内嵌序号升序排列
func (s *RenderService) orderAssets(assets []string) []string {
	var videos, images []string
	for _, a := range assets {
		if a == "" {
			continue
		}
		if _, err := os.Stat(a); err != nil {
			continue
		}
		if isVideoAsset(a) {
			videos = append(videos, a)
		} else if isImageAsset(a) {
			images = append(images, a)
		}
	}
	byIndex := func(paths []string) {
		sort.SliceStable(paths, func(i, j int) bool {
			return extractIndex(paths[i]) < extractIndex(paths[j])
		})
	}
	byIndex(videos)
	byIndex(images)
	return append(videos, images...)
}

func (s *RenderService) fallbackAssets(projectDir string) []string {
	assetsDir := filepath.Join(projectDir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil
	}
	var out []string
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 10; i++ {
		path, err := placeholder.Generate(i, assetsDir, s.videoCfg.Width, s.videoCfg.Height, s.rng)
		if err != nil {
			continue
		}
		out = append(out, path)
	}
	return out
}

func (s *RenderService) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		return 0
	}
	return s.rng.Float64()
}

func isVideoAsset(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".avi":
		return true
	}
	return false
}

func isImageAsset(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// extractIndex 取文件名中第一个纯数字段作为排序序号
func extractIndex(path string) int {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, part := range strings.Split(base, "_") {
		if n, err := strconv.Atoi(part); err == nil {
			return n
		}
	}
	return 0
}
