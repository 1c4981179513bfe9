// Package ffmpeg 封装 FFmpeg/FFprobe 命令调用。
// 合成流水线的所有媒体操作都走这里：探测时长、图片转镜头、视频截段/循环、
// 拼接、挂载音轨、抽帧、缩略图归一化。
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Client FFmpeg 客户端
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// VideoInfo 视频信息
type VideoInfo struct {
	Width    int     // 宽度
	Height   int     // 高度
	FPS      float64 // 帧率
	Duration float64 // 时长（秒）
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration float64 // 时长（秒）
}

// probeOutput ffprobe -of json 的输出结构
type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo 获取视频信息
func (c *Client) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	if len(probe.Streams) > 0 {
		stream := probe.Streams[0]
		info.Width = stream.Width
		info.Height = stream.Height
		info.FPS = parseFrameRate(stream.RFrameRate)
	}
	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)

	return info, nil
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("no duration in ffprobe output")
	}

	return &AudioInfo{Duration: duration}, nil
}

// coverCropFilter 保持比例铺满画布后居中裁剪到精确尺寸
func coverCropFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		width, height, width, height)
}

// CreateImageClip 把静态图片变成定长视频镜头
// 图片保持比例铺满画布，居中裁剪到 width x height
func (c *Client) CreateImageClip(ctx context.Context, imagePath, outputPath string, duration float64, width, height, fps int) error {
	args := []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", coverCropFilter(width, height),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-an",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("create image clip: %w", err)
	}

	log.Debug().
		Str("image", imagePath).
		Float64("duration", duration).
		Msg("图片镜头创建成功")
	return nil
}

// ExtractSubClip 从视频中截取一段并标准化到目标画布/帧率
// start 为源视频内的起始偏移，截取恰好 duration 秒，丢弃源音轨
func (c *Client) ExtractSubClip(ctx context.Context, inputPath, outputPath string, start, duration float64, width, height, fps int) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", coverCropFilter(width, height),
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("extract sub clip: %w", err)
	}
	return nil
}

// LoopClip 循环播放视频直到填满 duration 秒，并标准化到目标画布/帧率
// 源视频比镜头短时使用
func (c *Client) LoopClip(ctx context.Context, inputPath, outputPath string, duration float64, width, height, fps int) error {
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", coverCropFilter(width, height),
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("loop clip: %w", err)
	}
	return nil
}

// ConcatClips 按顺序拼接已标准化的视频镜头
// 使用 concat demuxer + 流复制，避免重新编码
func (c *Client) ConcatClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concat")
	}

	listPath, err := c.writeConcatList(clipPaths, outputPath)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("concat clips: %w", err)
	}

	log.Info().
		Int("count", len(clipPaths)).
		Str("output", outputPath).
		Msg("镜头拼接成功")
	return nil
}

// ConcatAudioParts 拼接多段音频（TTS 分段合成的中间产物）
func (c *Client) ConcatAudioParts(ctx context.Context, partPaths []string, outputPath string) error {
	if len(partPaths) == 0 {
		return fmt.Errorf("no audio parts to concat")
	}

	listPath, err := c.writeConcatList(partPaths, outputPath)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("concat audio parts: %w", err)
	}
	return nil
}

// AttachAudio 为无声视频轨挂载完整旁白音轨并编码成最终视频
func (c *Client) AttachAudio(ctx context.Context, videoPath, audioPath, outputPath string, preset string, threads int) error {
	if preset == "" {
		preset = "fast"
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", preset,
		"-threads", strconv.Itoa(threads),
		"-c:a", "aac",
		"-b:a", "160k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("attach audio: %w", err)
	}

	log.Info().
		Str("video", videoPath).
		Str("audio", audioPath).
		Str("output", outputPath).
		Msg("音轨挂载成功")
	return nil
}

// ExtractFrame 从视频的指定时间点抽取一帧保存为图片
func (c *Client) ExtractFrame(ctx context.Context, videoPath, outputPath string, at float64) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", at),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	return nil
}

// NormalizeImage 把图片归一化到指定尺寸（铺满裁剪），用于缩略图
func (c *Client) NormalizeImage(ctx context.Context, inputPath, outputPath string, width, height int) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", coverCropFilter(width, height),
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("normalize image: %w", err)
	}
	return nil
}

// writeConcatList 生成 concat demuxer 的清单文件（放在输出文件同目录）
func (c *Client) writeConcatList(paths []string, outputPath string) (string, error) {
	dir := filepath.Dir(outputPath)
	file, err := os.CreateTemp(dir, "concat_list_*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list file: %w", err)
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			file.Close()
			os.Remove(file.Name())
			return "", fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(file, "file '%s'\n", absPath)
	}

	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close concat list file: %w", err)
	}
	return file.Name(), nil
}

// run 执行 ffmpeg 命令，失败时把 stderr 尾部带进错误信息
func (c *Client) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

// parseFrameRate 解析 "30000/1001" 形式的帧率
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
