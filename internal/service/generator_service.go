package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/pkg/storage"
	"mango/internal/repository/journal"
	progressRepo "mango/internal/repository/progress"
)

// ErrDuplicateTopic 主题已生成过
var ErrDuplicateTopic = errors.New("该主题已生成过视频")

var (
	projectNameStripRe    = regexp.MustCompile(`[^\w\s-]`)
	projectNameCollapseRe = regexp.MustCompile(`[-\s]+`)
)

// GeneratorService 视频生成编排器
// 单个任务串行走完 脚本→配音→素材→合成→封面→元数据，任务间并发受全局信号量约束
type GeneratorService struct {
	cfg *config.Config

	scripts *ScriptService
	audio   *AudioService
	visuals *VisualService
	render  *RenderService
	thumbs  *ThumbnailService

	progress *progressRepo.ProgressRepo
	journals *journal.JournalRepo
	archive  storage.Storage // 可选的成品归档

	// 全局并发信号量，任务在入场处阻塞等待名额
	sem chan struct{}
	// 任务完成后保留进度记录的时长，给轮询方留出观察窗口
	completionGrace time.Duration
}

// NewGeneratorService 创建编排器
func NewGeneratorService(
	cfg *config.Config,
	scripts *ScriptService,
	audio *AudioService,
	visuals *VisualService,
	render *RenderService,
	thumbs *ThumbnailService,
	progress *progressRepo.ProgressRepo,
	journals *journal.JournalRepo,
	archive storage.Storage,
) *GeneratorService {
	return &GeneratorService{
		cfg:             cfg,
		scripts:         scripts,
		audio:           audio,
		visuals:         visuals,
		render:          render,
		thumbs:          thumbs,
		progress:        progress,
		journals:        journals,
		archive:         archive,
		sem:             make(chan struct{}, cfg.Pipeline.MaxConcurrentVideos),
		completionGrace: 5 * time.Second,
	}
}

// StartGeneration 提交生成任务，后台异步执行
func (s *GeneratorService) StartGeneration(req *model.GenerateRequest) (*model.GenerateResponse, error) {
	if done, err := s.journals.IsCompleted(req.Topic); err == nil && done {
		return nil, ErrDuplicateTopic
	}

	videoType := req.VideoType
	if videoType == "" {
		videoType = string(model.VideoTypeStandard)
	}
	progressID := fmt.Sprintf("%s_%s_%d", videoType, req.Category, time.Now().Unix())
	job := req.ToJob(progressID)

	// 先发布排队状态再异步执行，提交方立刻拿到可轮询的进度标识
	s.updateStatus(job, "Queued", 0, model.StatusProcessing, "Waiting for an available generation slot...")
	go s.run(job)

	return &model.GenerateResponse{
		ProgressID: progressID,
		VideoType:  string(job.VideoType),
	}, nil
}

// GetProgress 查询任务进度
func (s *GeneratorService) GetProgress(progressID string) *model.ProgressRecord {
	return s.progress.Get(progressID)
}

// CleanupStale 清理超时的进行中记录
func (s *GeneratorService) CleanupStale() ([]string, error) {
	return s.journals.CleanupStale()
}

func (s *GeneratorService) run(job *model.Job) {
	// 任务的第一个阻塞点：等到全局并发名额才开始干活
	s.sem <- struct{}{}
	// 信号量无条件归还，任何退出路径都不能泄漏名额
	defer func() { <-s.sem }()

	ctx := context.Background()
	start := time.Now()
	settings := model.SettingsFor(job.VideoType)
	projectName := SanitizeProjectName(job.Topic)
	projectDir := filepath.Join(s.cfg.Pipeline.OutputDir, projectName)

	logger := log.With().
		Str("progress_id", job.ProgressID).
		Str("project", projectName).
		Logger()

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("创建项目目录失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}
	s.progress.Bind(job.ProgressID, projectDir)

	if err := s.journals.AddGenerating(projectName, journal.GeneratingEntry{
		Topic:      job.Topic,
		ProgressID: job.ProgressID,
		VideoType:  string(job.VideoType),
	}); err != nil {
		logger.Warn().Err(err).Msg("登记进行中任务失败")
	}

	s.updateProgress(job, "Generating script", 10, "Creating engaging narrative...")
	script, err := s.scripts.GenerateScript(ctx, job, settings)
	if err != nil {
		logger.Error().Err(err).Msg("脚本生成失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}

	s.updateProgress(job, "Generating voiceover", 25, "Creating professional narration...")
	audioPath, audioDuration, err := s.audio.GenerateVoiceover(ctx, script, projectDir, job.VoiceID, settings.TTSModel)
	if err != nil {
		logger.Error().Err(err).Msg("旁白合成失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}

	s.updateProgress(job, "Gathering visuals", 40, "Finding perfect visuals...")
	assets, err := s.visuals.GatherVisuals(ctx, job, script, audioDuration, settings, projectDir)
	if err != nil {
		logger.Error().Err(err).Msg("素材获取失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}

	s.updateProgress(job, "Rendering video", 80, "This can take several minutes...")
	videoPath, err := s.render.RenderVideo(ctx, assets, audioPath, projectDir, settings)
	if err != nil {
		logger.Error().Err(err).Msg("视频合成失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}

	s.updateProgress(job, "Generating thumbnail", 95, "Creating eye-catching thumbnail...")
	s.thumbs.GenerateThumbnail(ctx, job, assets, script, projectDir)

	s.updateProgress(job, "Generating metadata", 98, "Creating YouTube metadata...")
	md := s.scripts.GenerateMetadata(ctx, job.Topic, script, job.VideoType)
	md.OriginalTopic = job.Topic
	if err := s.writeMetadata(projectDir, md); err != nil {
		logger.Error().Err(err).Msg("元数据写入失败")
		s.failJob(job, projectDir, projectName, err)
		return
	}

	if err := s.journals.MarkCompleted(job.Topic); err != nil {
		logger.Warn().Err(err).Msg("记录已完成主题失败")
	}
	elapsed := time.Since(start)
	s.updateStatus(job, "Complete", 100, model.StatusCompleted,
		fmt.Sprintf("Generated in %.1fs", elapsed.Seconds()))
	logger.Info().
		Dur("elapsed", elapsed).
		Str("video", videoPath).
		Msg("视频生成完成")

	s.archiveProject(ctx, projectName, projectDir)

	// 留出观察窗口后再收尾，轮询方能看到 completed 状态
	time.Sleep(s.completionGrace)
	s.cleanupOnSuccess(projectDir)
	if err := s.journals.RemoveGenerating(projectName); err != nil {
		logger.Warn().Err(err).Msg("注销进行中任务失败")
	}
	s.progress.Remove(job.ProgressID)
	os.Remove(progressRepo.SnapshotPath(projectDir))
}

// failJob 任务失败收尾：写入错误进度、注销台账、删除工作目录
func (s *GeneratorService) failJob(job *model.Job, projectDir, projectName string, cause error) {
	detail := "Unknown error occurred"
	if cause != nil {
		if ge := model.AsGenerationError(cause); ge != nil {
			detail = ge.Message
		} else {
			detail = cause.Error()
		}
	}
	s.updateStatus(job, "Error", 0, model.StatusError, detail)

	if err := s.journals.RemoveGenerating(projectName); err != nil {
		log.Warn().Err(err).Str("project", projectName).Msg("注销进行中任务失败")
	}

	// 先解绑再删目录，之后的快照写入不会把已删除的目录重新建出来
	s.progress.Unbind(job.ProgressID)
	if err := os.RemoveAll(projectDir); err != nil {
		log.Warn().Err(err).Str("dir", projectDir).Msg("清理项目目录失败")
	}
}

// cleanupOnSuccess 清掉中间产物，保留成品、封面和元数据
func (s *GeneratorService) cleanupOnSuccess(projectDir string) {
	os.RemoveAll(filepath.Join(projectDir, "audio", "parts"))
	os.RemoveAll(filepath.Join(projectDir, "clips"))

	matches, _ := filepath.Glob(filepath.Join(projectDir, "*.tmp"))
	for _, m := range matches {
		os.Remove(m)
	}
}

func (s *GeneratorService) archiveProject(ctx context.Context, projectName, projectDir string) {
	if s.archive == nil {
		return
	}
	files := map[string]string{
		finalVideoFile: "video/mp4",
		thumbnailFile:  "image/jpeg",
		metadataFile:   "application/json",
	}
	for name, contentType := range files {
		f, err := os.Open(filepath.Join(projectDir, name))
		if err != nil {
			continue
		}
		key := projectName + "/" + name
		if _, err := s.archive.Upload(ctx, key, f, contentType); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("成品归档失败")
		}
		f.Close()
	}
}

func (s *GeneratorService) writeMetadata(projectDir string, md *model.Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, metadataFile), data, 0o644)
}

func (s *GeneratorService) updateProgress(job *model.Job, step string, percentage int, details string) {
	s.updateStatus(job, step, percentage, model.StatusProcessing, details)
}

func (s *GeneratorService) updateStatus(job *model.Job, step string, percentage int, status, details string) {
	s.progress.Update(&model.ProgressRecord{
		Step:       step,
		Percentage: percentage,
		Status:     status,
		Topic:      job.Topic,
		VideoType:  string(job.VideoType),
		Details:    details,
		ProgressID: job.ProgressID,
	})
}

// SanitizeProjectName 把主题转成安全的目录名
func SanitizeProjectName(topic string) string {
	name := strings.ToLower(topic)
	name = projectNameStripRe.ReplaceAllString(name, "")
	name = projectNameCollapseRe.ReplaceAllString(name, "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return strings.Trim(name, "_")
}
