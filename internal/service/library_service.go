package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"mango/internal/model"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/repository/journal"
)

// ErrProjectNotFound 项目不存在
var ErrProjectNotFound = errors.New("视频项目不存在")

const (
	finalVideoFile = "final_video.mp4"
	thumbnailFile  = "thumbnail.jpg"
	metadataFile   = "youtube_metadata.json"
	progressFile   = ".progress.json"
)

// LibraryService 视频库，管理输出目录下已生成和生成中的项目
type LibraryService struct {
	outputDir string
	ffmpeg    *ffmpeg.Client
	journals  *journal.JournalRepo
}

// NewLibraryService 创建视频库服务
func NewLibraryService(outputDir string, ffmpegClient *ffmpeg.Client, journals *journal.JournalRepo) *LibraryService {
	return &LibraryService{
		outputDir: outputDir,
		ffmpeg:    ffmpegClient,
		journals:  journals,
	}
}

// ListProjects 列出全部项目，按创建时间倒序
// 成品已落盘但仍在进行中台账里的项目顺手注销
func (s *LibraryService) ListProjects(ctx context.Context) ([]model.ProjectInfo, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ProjectInfo{}, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	generating, err := s.journals.ListGenerating()
	if err != nil {
		log.Warn().Err(err).Msg("读取进行中台账失败")
		generating = map[string]journal.GeneratingEntry{}
	}

	projects := []model.ProjectInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(s.outputDir, name)

		info, err := entry.Info()
		created := int64(0)
		if err == nil {
			created = info.ModTime().Unix()
		}

		videoPath := filepath.Join(dir, finalVideoFile)
		metadataPath := filepath.Join(dir, metadataFile)

		videoStat, videoErr := os.Stat(videoPath)
		_, metaErr := os.Stat(metadataPath)

		if videoErr == nil && metaErr == nil {
			if _, ok := generating[name]; ok {
				if err := s.journals.RemoveGenerating(name); err != nil {
					log.Warn().Err(err).Str("project", name).Msg("注销进行中记录失败")
				}
			}
			projects = append(projects, s.completedProject(ctx, name, dir, videoStat.Size(), created))
			continue
		}

		if _, err := os.Stat(filepath.Join(dir, progressFile)); err == nil {
			projects = append(projects, s.generatingProject(name, created, generating[name]))
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Created > projects[j].Created
	})
	return projects, nil
}

// GetMetadata 读取项目的发布元数据
func (s *LibraryService) GetMetadata(name string) (*model.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.outputDir, name, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var md model.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &md, nil
}

// DeleteProject 删除项目目录并从台账中摘除
func (s *LibraryService) DeleteProject(name string) error {
	dir := filepath.Join(s.outputDir, name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("stat project dir: %w", err)
	}

	// 已完成清单里可能存着主题的多种写法
	for _, variant := range topicVariants(name) {
		if err := s.journals.UnmarkCompleted(variant); err != nil {
			log.Warn().Err(err).Str("topic", variant).Msg("清理已完成记录失败")
		}
	}
	if err := s.journals.RemoveGenerating(name); err != nil {
		log.Warn().Err(err).Str("project", name).Msg("注销进行中记录失败")
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}
	log.Info().Str("project", name).Msg("视频项目已删除")
	return nil
}

func (s *LibraryService) completedProject(ctx context.Context, name, dir string, videoSize, created int64) model.ProjectInfo {
	p := model.ProjectInfo{
		Name:        name,
		DisplayName: titleCase(strings.ReplaceAll(name, "_", " ")),
		VideoPath:   filepath.Join("/videos", name, finalVideoFile),
		SizeMB:      float64(videoSize) / (1024 * 1024),
		Created:     created,
		Status:      "completed",
		HasMetadata: true,
		VideoType:   string(model.VideoTypeStandard),
	}

	if _, err := os.Stat(filepath.Join(dir, thumbnailFile)); err == nil {
		p.Thumbnail = filepath.Join("/videos", name, thumbnailFile)
	}

	if info, err := s.ffmpeg.GetVideoInfo(ctx, filepath.Join(dir, finalVideoFile)); err == nil {
		p.Duration = info.Duration
		if info.Duration < 61 {
			p.VideoType = string(model.VideoTypeShorts)
		}
	}
	if md, err := s.GetMetadata(name); err == nil && md.VideoType == string(model.VideoTypeShorts) {
		p.VideoType = string(model.VideoTypeShorts)
	}
	return p
}

func (s *LibraryService) generatingProject(name string, created int64, entry journal.GeneratingEntry) model.ProjectInfo {
	display := entry.Topic
	if display == "" {
		display = titleCase(strings.ReplaceAll(name, "_", " "))
	}
	videoType := entry.VideoType
	if videoType == "" {
		videoType = string(model.VideoTypeStandard)
	}
	return model.ProjectInfo{
		Name:        name,
		DisplayName: display,
		Created:     created,
		Status:      "generating",
		VideoType:   videoType,
		ProgressID:  entry.ProgressID,
	}
}

// topicVariants 目录名可能对应的主题写法
func topicVariants(name string) []string {
	spaced := strings.ReplaceAll(name, "_", " ")
	return []string{titleCase(spaced), spaced, name}
}
