package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"mango/internal/ai"
	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/pkg/ark"
	"mango/internal/pkg/fanout"
	"mango/internal/pkg/keywords"
	"mango/internal/pkg/placeholder"
	"mango/internal/pkg/shotplan"
	"mango/internal/pkg/stability"
	"mango/internal/pkg/stock"
)

// 未配置 pipeline.keyword_count 时的搜索关键词数量
const defaultKeywordCount = 7

// VisualService 视觉素材获取
// stability 模式按段落生成 AI 图片，stock 模式搜索并下载素材
type VisualService struct {
	stability *stability.Client
	arkImage  *ark.ImageClient
	stock     *stock.Client
	aiClient  *ai.Client
	extractor *keywords.Extractor

	videoCfg     *config.VideoConfig
	pipelineCfg  *config.PipelineConfig
	keywordCount int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewVisualService 创建素材服务
// stability / ark / stock 客户端允许为 nil，对应模式不可用时返回素材错误
func NewVisualService(
	stabilityClient *stability.Client,
	arkImage *ark.ImageClient,
	stockClient *stock.Client,
	aiClient *ai.Client,
	extractor *keywords.Extractor,
	videoCfg *config.VideoConfig,
	pipelineCfg *config.PipelineConfig,
	rng *rand.Rand,
) *VisualService {
	keywordCount := pipelineCfg.KeywordCount
	if keywordCount <= 0 {
		keywordCount = defaultKeywordCount
	}
	return &VisualService{
		stability:    stabilityClient,
		arkImage:     arkImage,
		stock:        stockClient,
		aiClient:     aiClient,
		extractor:    extractor,
		videoCfg:     videoCfg,
		pipelineCfg:  pipelineCfg,
		keywordCount: keywordCount,
		rng:          rng,
	}
}

// GatherVisuals 获取本次视频需要的全部素材，返回素材文件路径
func (s *VisualService) GatherVisuals(ctx context.Context, job *model.Job, script string, audioDuration float64, settings model.VideoSettings, projectDir string) ([]string, error) {
	assetsDir := filepath.Join(projectDir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil, model.NewAssetError("create assets dir failed", err)
	}

	if audioDuration <= 0 {
		log.Warn().Msg("音频时长不可用，按 30 秒规划素材数量")
		audioDuration = 30
	}

	slots := shotplan.Slots(
		audioDuration,
		s.videoCfg.IntroClipsCount,
		s.videoCfg.IntroClipDuration,
		settings.ClipDuration,
		s.videoCfg.ImageBuffer,
	)

	var (
		assets []string
		err    error
	)
	if job.GenerationMode == model.GenerationModeStability {
		assets, err = s.generateImages(ctx, job, script, slots, assetsDir)
	} else {
		assets, err = s.gatherStock(ctx, job.Topic, script, slots, assetsDir)
	}
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, model.NewAssetError("no visual assets could be acquired", nil)
	}

	log.Info().
		Int("slots", slots).
		Int("assets", len(assets)).
		Str("mode", string(job.GenerationMode)).
		Msg("素材获取完成")
	return assets, nil
}

// generateImages 并行生成 AI 图片，失败槽位重试后退回渐变占位图
func (s *VisualService) generateImages(ctx context.Context, job *model.Job, script string, count int, assetsDir string) ([]string, error) {
	paragraphs := splitParagraphs(script)
	log.Info().Int("count", count).Str("provider", job.AIProvider).Msg("并行生成AI图片")

	tasks := make([]fanout.Task, count)
	for i := 0; i < count; i++ {
		index := i
		paragraph := paragraphs[i%len(paragraphs)]
		prompt := imagePrompt(job.Topic, paragraph)
		tasks[i] = func(ctx context.Context) (string, error) {
			data, err := s.generateOne(ctx, job, prompt)
			if err != nil {
				return "", err
			}
			name := fmt.Sprintf("gen_%d_%d.png", index, 1000+s.randIntn(9000))
			path := filepath.Join(assetsDir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return "", err
			}
			return path, nil
		}
	}

	fallback := func(index int) (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return placeholder.Generate(index, assetsDir, s.videoCfg.Width, s.videoCfg.Height, s.rng)
	}

	results, err := fanout.Run(ctx, tasks, s.pipelineCfg.MaxImageWorkers, s.pipelineCfg.RetryAttempts, fallback)
	if err != nil {
		return nil, model.NewAssetError("parallel image generation failed", err)
	}
	return compact(results), nil
}

func (s *VisualService) generateOne(ctx context.Context, job *model.Job, prompt string) ([]byte, error) {
	if job.AIProvider == "ark" {
		if s.arkImage == nil {
			return nil, fmt.Errorf("ark image client is not configured")
		}
		return s.arkImage.GenerateImage(ctx, prompt)
	}
	if s.stability == nil {
		return nil, fmt.Errorf("stability client is not configured")
	}
	return s.stability.GenerateImage(ctx, prompt, job.StylePreset)
}

// gatherStock 生成搜索关键词，并行搜索+去重+并行下载素材
func (s *VisualService) gatherStock(ctx context.Context, topic, script string, needed int, assetsDir string) ([]string, error) {
	if s.stock == nil {
		return nil, model.NewAssetError("stock footage client is not configured", nil)
	}

	perKeyword := int(math.Ceil(float64(needed+5) / float64(s.keywordCount)))
	kws := s.searchKeywords(ctx, topic, script)
	if len(kws) > s.keywordCount {
		kws = kws[:s.keywordCount]
	}
	log.Info().
		Int("needed", needed).
		Int("per_keyword", perKeyword).
		Strs("keywords", kws).
		Msg("搜索素材库")

	// 各关键词独立搜索，单个失败不影响整体
	var (
		mu  sync.Mutex
		all []stock.Asset
		wg  sync.WaitGroup
	)
	for _, kw := range kws {
		wg.Add(1)
		go func(kw string) {
			defer wg.Done()
			found := s.stock.Search(ctx, kw, perKeyword)
			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
		}(kw)
	}
	wg.Wait()

	// 按素材ID去重，保持出现顺序
	seen := make(map[string]bool, len(all))
	unique := all[:0]
	for _, a := range all {
		if !seen[a.ID] {
			seen[a.ID] = true
			unique = append(unique, a)
		}
	}

	tasks := make([]fanout.Task, len(unique))
	for i, asset := range unique {
		index, asset := i, asset
		tasks[i] = func(ctx context.Context) (string, error) {
			return s.stock.Download(ctx, index, asset, assetsDir)
		}
	}

	// 下载失败的素材直接放弃，渲染阶段会循环复用已有素材补位
	results, err := fanout.Run(ctx, tasks, s.pipelineCfg.MaxDownloadWorkers, 1, nil)
	if err != nil {
		return nil, model.NewAssetError("asset download failed", err)
	}
	return compact(results), nil
}

// searchKeywords 由 LLM 提炼搜索关键词，失败时退回分词提取
func (s *VisualService) searchKeywords(ctx context.Context, topic, script string) []string {
	if s.aiClient != nil {
		if kws := s.llmKeywords(ctx, topic, script); len(kws) > 0 {
			return kws
		}
	}
	return s.extractor.Extract(topic)
}

func (s *VisualService) llmKeywords(ctx context.Context, topic, script string) []string {
	excerpt := script
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}
	prompt := fmt.Sprintf(`Analyze this YouTube video topic and script to generate the BEST 15 stock footage search keywords.

Topic: "%s"
Script Excerpt: "%s"

Instructions:
1.  Focus on tangible objects, actions, scenes, and visual metaphors.
2.  Keywords should be descriptive and specific (2-3 words is ideal).
3.  AVOID abstract concepts like 'moment', 'situation', 'common', 'tricks', or 'reason'.
4.  Include a mix of scientific and conceptual terms.

Example:
- Good: "scientist looking at brain scan", "glowing neural network", "blurry memory effect"
- Bad: "experience", "feeling", "concept"

Return ONLY a comma-separated list of keywords.
`, topic, excerpt)

	content, err := s.aiClient.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("关键词生成失败，使用分词提取")
		return nil
	}
	var kws []string
	for _, k := range strings.Split(content, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
		if len(kws) >= 15 {
			break
		}
	}
	return kws
}

func (s *VisualService) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		return 0
	}
	return s.rng.Intn(n)
}

func imagePrompt(topic, paragraph string) string {
	if len(paragraph) > 100 {
		paragraph = paragraph[:100]
	}
	return fmt.Sprintf("Educational illustration of '%s' related to '%s'. Cinematic, high detail, photorealistic.", topic, paragraph)
}

func splitParagraphs(script string) []string {
	var paragraphs []string
	for _, p := range strings.Split(script, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		paragraphs = []string{script}
	}
	return paragraphs
}

func compact(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
