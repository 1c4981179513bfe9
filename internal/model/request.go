package model

// GenerateRequest 提交视频生成任务请求
type GenerateRequest struct {
	Topic          string `json:"topic" binding:"required"`                                       // 视频主题（必填）
	Category       string `json:"category" binding:"required"`                                    // 内容分类（必填）
	VideoType      string `json:"video_type" binding:"omitempty,oneof=shorts standard"`           // 视频类型，默认 standard
	VoiceID        string `json:"voice_id"`                                                       // TTS 音色，默认 21m00Tcm4TlvDq8ikWAM
	GenerationMode string `json:"generation_mode" binding:"omitempty,oneof=stock stability"`      // 素材模式，默认 stock
	AIProvider     string `json:"ai_provider" binding:"omitempty,oneof=stability ark"`            // 图片提供商，默认 stability
	StylePreset    string `json:"style_preset"`                                                   // 图片风格，默认 cinematic
}

// ToJob 应用默认值并转换为不可变的 Job
func (r *GenerateRequest) ToJob(progressID string) *Job {
	videoType := VideoType(r.VideoType)
	if videoType == "" {
		videoType = VideoTypeStandard
	}

	mode := GenerationMode(r.GenerationMode)
	if mode == "" {
		mode = GenerationModeStock
	}

	voiceID := r.VoiceID
	if voiceID == "" {
		voiceID = "21m00Tcm4TlvDq8ikWAM"
	}

	aiProvider := r.AIProvider
	if aiProvider == "" {
		aiProvider = "stability"
	}

	stylePreset := r.StylePreset
	if stylePreset == "" {
		stylePreset = "cinematic"
	}

	return &Job{
		Topic:          r.Topic,
		Category:       r.Category,
		VideoType:      videoType,
		VoiceID:        voiceID,
		GenerationMode: mode,
		AIProvider:     aiProvider,
		StylePreset:    stylePreset,
		ProgressID:     progressID,
	}
}
