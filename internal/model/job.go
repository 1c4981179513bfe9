package model

// VideoType 视频类型
type VideoType string

const (
	VideoTypeShorts   VideoType = "shorts"   // 短视频（竖屏节奏，旁白 80-100 词）
	VideoTypeStandard VideoType = "standard" // 标准长视频（旁白 800-1000 词）
)

// GenerationMode 素材获取模式
type GenerationMode string

const (
	GenerationModeStock     GenerationMode = "stock"     // 网络素材库搜索下载
	GenerationModeStability GenerationMode = "stability" // AI 图片生成
)

// Job 一次视频生成请求（创建后不可变）
type Job struct {
	Topic          string         // 视频主题
	Category       string         // 内容分类 (why / what_if / custom / ...)
	VideoType      VideoType      // 视频类型
	VoiceID        string         // TTS 音色
	GenerationMode GenerationMode // 素材获取模式
	AIProvider     string         // 图片生成提供商 (stability / ark)
	StylePreset    string         // 图片风格预设
	ProgressID     string         // 进度查询标识
}

// VideoSettings 按视频类型派生的节奏参数（只读）
type VideoSettings struct {
	ClipDuration float64 // 正文镜头目标时长（秒）
	WordCountMin int     // 旁白词数下限
	WordCountMax int     // 旁白词数上限
	TTSModel     string  // TTS 模型
}

// SettingsFor 根据视频类型返回节奏参数
func SettingsFor(videoType VideoType) VideoSettings {
	if videoType == VideoTypeShorts {
		return VideoSettings{
			ClipDuration: 6.0,
			WordCountMin: 80,
			WordCountMax: 100,
			TTSModel:     "eleven_monolingual_v1",
		}
	}
	return VideoSettings{
		ClipDuration: 14.0,
		WordCountMin: 800,
		WordCountMax: 1000,
		TTSModel:     "eleven_monolingual_v1",
	}
}

// Metadata 视频发布元数据
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	VideoType     string   `json:"video_type"`
	OriginalTopic string   `json:"original_topic,omitempty"`
}
