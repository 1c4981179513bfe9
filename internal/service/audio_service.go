package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"mango/internal/model"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/pkg/tts"
)

// AudioService 旁白语音合成
// 超长脚本按句子边界切块逐段合成，再用 ffmpeg 拼接
type AudioService struct {
	ttsClient  *tts.Client
	ffmpeg     *ffmpeg.Client
	chunkLimit int
}

// NewAudioService 创建语音服务
func NewAudioService(ttsClient *tts.Client, ffmpegClient *ffmpeg.Client, chunkLimit int) *AudioService {
	if chunkLimit <= 0 {
		chunkLimit = 9500
	}
	return &AudioService{
		ttsClient:  ttsClient,
		ffmpeg:     ffmpegClient,
		chunkLimit: chunkLimit,
	}
}

// GenerateVoiceover 合成旁白音频，返回音频路径与时长（秒）
func (s *AudioService) GenerateVoiceover(ctx context.Context, script, projectDir, voiceID, ttsModel string) (string, float64, error) {
	audioDir := filepath.Join(projectDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return "", 0, model.NewAudioError("create audio dir failed", err)
	}
	audioPath := filepath.Join(audioDir, "narration.mp3")

	if err := s.synthesize(ctx, script, audioPath, audioDir, voiceID, ttsModel); err != nil {
		return "", 0, err
	}

	info, err := s.ffmpeg.GetAudioInfo(ctx, audioPath)
	if err != nil {
		return "", 0, model.NewAudioError("probe narration audio failed", err)
	}
	if info.Duration < 1.0 {
		return "", 0, model.NewAudioError(
			fmt.Sprintf("generated audio is too short: %.2fs", info.Duration), nil)
	}

	log.Info().Float64("duration", info.Duration).Str("path", audioPath).Msg("旁白音频生成完成")
	return audioPath, info.Duration, nil
}

func (s *AudioService) synthesize(ctx context.Context, script, audioPath, audioDir, voiceID, ttsModel string) error {
	if s.ttsClient == nil {
		return model.NewAudioError("TTS client is not configured", nil)
	}
	chunks := SplitTextIntoChunks(script, s.chunkLimit)
	if len(chunks) == 0 {
		return model.NewAudioError("script is empty after chunking", nil)
	}
	if len(chunks) > 1 {
		log.Info().Int("chunks", len(chunks)).Msg("脚本过长，分块合成语音")
	}

	partsDir := filepath.Join(audioDir, "parts")
	if err := os.MkdirAll(partsDir, 0o755); err != nil {
		return model.NewAudioError("create audio parts dir failed", err)
	}
	// 分块文件只是中间产物，无论成败都清掉
	defer os.RemoveAll(partsDir)

	partPaths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		data, err := s.ttsClient.Synthesize(ctx, chunk, voiceID, ttsModel)
		if err != nil {
			return model.NewAudioError(
				fmt.Sprintf("TTS failed on chunk %d/%d", i+1, len(chunks)), err)
		}
		partPath := filepath.Join(partsDir, fmt.Sprintf("part_%d.mp3", i))
		if err := os.WriteFile(partPath, data, 0o644); err != nil {
			return model.NewAudioError("write audio part failed", err)
		}
		partPaths = append(partPaths, partPath)
	}

	if len(partPaths) == 1 {
		if err := os.Rename(partPaths[0], audioPath); err != nil {
			return model.NewAudioError("move narration audio failed", err)
		}
		return nil
	}

	log.Info().Int("parts", len(partPaths)).Msg("拼接语音分块")
	if err := s.ffmpeg.ConcatAudioParts(ctx, partPaths, audioPath); err != nil {
		return model.NewAudioError("stitch audio parts failed", err)
	}
	return nil
}

// SplitTextIntoChunks 在句子边界切分长文本，单块不超过 limit 个字符
func SplitTextIntoChunks(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		splitPos := strings.LastIndex(text[:limit], ".")
		if splitPos == -1 {
			splitPos = strings.LastIndex(text[:limit], "?")
		}
		if splitPos == -1 {
			splitPos = strings.LastIndex(text[:limit], "!")
		}
		if splitPos == -1 {
			splitPos = strings.LastIndex(text[:limit], " ")
		}
		if splitPos == -1 {
			// 没有任何切点时按上限硬切，回退到字符边界避免切断多字节字符
			end := limit
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == 0 {
				end = limit
			}
			splitPos = end - 1
		}
		chunks = append(chunks, text[:splitPos+1])
		text = text[splitPos+1:]
	}
	chunks = append(chunks, text)

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
