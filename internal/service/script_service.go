package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"mango/internal/ai"
	"mango/internal/model"
)

// 旁白清洗规则：去掉镜头指示、舞台说明等不应被朗读的内容
var (
	bracketedRe    = regexp.MustCompile(`\[.*?\]|\(.*?\)|<.*?>`)
	sectionLabelRe = regexp.MustCompile(`(?i)(Part \d+:|Section \d+:|Chapter \d+:|Scene \d+:)`)
	emphasisRe     = regexp.MustCompile(`\*\*|\*`)
	directionRe    = regexp.MustCompile(`(?i)(Cut to:|Shot of:|Visual:|Image:|Video:|Audio:)`)
	countryTopicRe = regexp.MustCompile(`(?i)what does ai think about ([\w\s]+)\??$`)
	partHeaderRe   = regexp.MustCompile(`(?i)^\s*PART\s*\d:\s*`)
)

// ScriptService 旁白脚本与发布元数据生成
type ScriptService struct {
	aiClient   *ai.Client
	maxRetries int
}

// NewScriptService 创建脚本服务
func NewScriptService(aiClient *ai.Client, maxRetries int) *ScriptService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ScriptService{
		aiClient:   aiClient,
		maxRetries: maxRetries,
	}
}

// GenerateScript 根据主题生成旁白脚本
// custom 分类下 "what does ai think about X" 形式的主题走国家观察变体
func (s *ScriptService) GenerateScript(ctx context.Context, job *model.Job, settings model.VideoSettings) (string, error) {
	log.Info().
		Str("topic", job.Topic).
		Str("video_type", string(job.VideoType)).
		Msg("开始生成旁白脚本")

	if s.aiClient == nil {
		return "", model.NewScriptError("LLM client is not configured", nil)
	}

	var prompt string
	if m := countryTopicRe.FindStringSubmatch(job.Topic); m != nil && job.Category == "custom" {
		prompt = countryPrompt(titleCase(strings.TrimSpace(m[1])), job.Topic, settings)
	} else if job.VideoType == model.VideoTypeShorts {
		prompt = shortsPrompt(job.Topic, settings)
	} else {
		prompt = standardPrompt(job.Topic, job.Category, settings)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		raw, err := s.aiClient.Generate(ctx, prompt)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("脚本生成失败，准备重试")
			continue
		}
		script := CleanScriptForVoice(raw)
		if len(script) < 50 {
			lastErr = fmt.Errorf("script too short: %d chars", len(script))
			log.Warn().Int("attempt", attempt).Int("length", len(script)).Msg("脚本过短，准备重试")
			continue
		}
		return script, nil
	}
	return "", model.NewScriptError(
		fmt.Sprintf("script generation failed after %d attempts", s.maxRetries), lastErr)
}

// GenerateMetadata 生成视频标题、描述与标签
// LLM 输出不符合约定格式时退回由主题和脚本拼出的保底元数据
func (s *ScriptService) GenerateMetadata(ctx context.Context, topic, script string, videoType model.VideoType) *model.Metadata {
	if s.aiClient == nil {
		return metadataFallback(topic, script, videoType)
	}
	content, err := s.aiClient.Generate(ctx, metadataPrompt(topic))
	if err != nil {
		log.Warn().Err(err).Msg("元数据生成失败，使用保底元数据")
		return metadataFallback(topic, script, videoType)
	}

	parts := strings.Split(strings.TrimSpace(content), "---")
	if len(parts) != 3 {
		log.Warn().Int("parts", len(parts)).Msg("元数据格式不符合约定，使用保底元数据")
		return metadataFallback(topic, script, videoType)
	}

	title := strings.TrimSpace(partHeaderRe.ReplaceAllString(parts[0], ""))
	desc := strings.TrimSpace(partHeaderRe.ReplaceAllString(parts[1], ""))
	tagsLine := strings.TrimSpace(partHeaderRe.ReplaceAllString(parts[2], ""))
	if title == "" || desc == "" || tagsLine == "" {
		log.Warn().Msg("元数据存在空字段，使用保底元数据")
		return metadataFallback(topic, script, videoType)
	}

	var tags []string
	for _, t := range strings.Split(tagsLine, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	hashtags := make([]string, 0, len(tags))
	for _, t := range tags {
		hashtags = append(hashtags, "#"+strings.ReplaceAll(t, " ", ""))
	}

	return &model.Metadata{
		Title:       title,
		Description: desc + "\n\n" + strings.Join(hashtags, " "),
		Tags:        tags,
		VideoType:   string(videoType),
	}
}

// CleanScriptForVoice 清洗脚本为纯朗读文本
func CleanScriptForVoice(script string) string {
	script = bracketedRe.ReplaceAllString(script, "")
	script = sectionLabelRe.ReplaceAllString(script, "")
	script = emphasisRe.ReplaceAllString(script, "")
	script = directionRe.ReplaceAllString(script, "")
	return strings.TrimSpace(script)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func metadataFallback(topic, script string, videoType model.VideoType) *model.Metadata {
	title := topic
	if len(title) > 100 {
		title = title[:100]
	}
	desc := script
	if len(desc) > 400 {
		desc = desc[:400]
	}
	var tags []string
	for _, word := range strings.Fields(strings.ToLower(topic)) {
		if len(word) > 3 {
			tags = append(tags, word)
		}
		if len(tags) >= 15 {
			break
		}
	}
	return &model.Metadata{
		Title:       title,
		Description: desc,
		Tags:        tags,
		VideoType:   string(videoType),
	}
}

func shortsPrompt(topic string, settings model.VideoSettings) string {
	return fmt.Sprintf(`Write a YouTube Shorts script about: "%s"

IMPORTANT: Write EXACTLY %d-%d words.

Requirements:
- Hook viewers in first 3 seconds
- Ultra-concise, punchy sentences
- One surprising fact or revelation
- Call-to-action at the end
- Designed for vertical viewing
- High energy throughout

Write ONLY spoken narration. NO visual directions.
`, topic, settings.WordCountMin, settings.WordCountMax)
}

func standardPrompt(topic, category string, settings model.VideoSettings) string {
	var style string
	switch category {
	case "why", "custom":
		style = "scientific explanation with surprising facts"
	case "what_if":
		style = "imaginative exploration of hypothetical scenarios"
	default:
		style = "revealing investigation into hidden systems and psychology"
	}

	return fmt.Sprintf(`Write a YouTube video script about: "%s"

Style: %s

IMPORTANT: Write EXACTLY %d-%d words.

Requirements:
- ELI5 tone - simple, clear, engaging
- Start with powerful hook in first sentence
- Break into 5-6 clear paragraphs
- End with memorable conclusion and call-to-action
- Curiosity-driven and educational
- Use "you" to address viewer directly

Write ONLY spoken narration. NO visual directions, NO brackets, NO camera instructions.
Just pure narration text.
`, topic, style, settings.WordCountMin, settings.WordCountMax)
}

func countryPrompt(countryName, topic string, settings model.VideoSettings) string {
	return fmt.Sprintf(`You are a helpful and insightful AI narrator for a YouTube video. Your task is to generate a script for the topic: "%s".

IMPORTANT: Adopt a first-person AI persona. Use phrases like "As an AI, my analysis shows...", "From my perspective...", or "To an AI like me...". You are speaking directly about the country. Do NOT explain what artificial intelligence is or how you process data.

The script MUST be structured as follows, with clear paragraphs for each section:
1.  **Introduction:** Start with a powerful hook. Announce that you, an AI, will share your unique, data-driven perspective on %s.
2.  **The Bright Side (Positive Analysis):** Discuss 2-3 specific, positive aspects. Mention its culture, natural beauty, innovations, or famous contributions. Be specific and give examples.
3.  **The Complexities (Challenges & Concerns):** Discuss 2-3 specific challenges or concerns for %s. This could be economic, social, or environmental issues. Present this in a balanced, objective, and neutral tone.
4.  **Hidden Gems (What Makes It Unique):** Share 2-3 fascinating, lesser-known facts, places, or cultural quirks that make %s stand out from a data perspective.
5.  **Conclusion:** Briefly summarize your "thoughts," emphasizing the country's unique character and complexity. End with a memorable, thought-provoking statement and a call-to-action for viewers to share their own experiences in the comments.

CRITICAL INSTRUCTIONS:
- The total script length must be between %d and %d words.
- The tone must be conversational, engaging, and slightly awe-inspired, not robotic.
- Write ONLY the spoken narration. Do NOT include visual directions, scene headings (like "Introduction:"), brackets like [intro music], or camera instructions.
`, topic, countryName, countryName, countryName, settings.WordCountMin, settings.WordCountMax)
}

func metadataPrompt(topic string) string {
	return fmt.Sprintf(`You are an expert in writing viral YouTube video metadata.
Your task is to generate three components for a video with the topic: "%s".
Provide the output in three distinct parts, separated only by "---".
IMPORTANT: Do NOT write "PART 1:", "PART 2:", or any similar headers in your response.

The first part is the video title (max 100 characters).
---
The second part is the engaging video description (2-4 sentences, with emojis, NO "subscribe" or "like" calls-to-action).
---
The third part is a comma-separated list of 10-15 relevant keywords/tags (do NOT include the '#' symbol).
`, topic)
}
