package model

// GenerateResponse 任务提交响应
type GenerateResponse struct {
	ProgressID string `json:"progress_id"` // 进度查询标识
	VideoType  string `json:"video_type"`  // 视频类型
}

// ProjectInfo 视频库条目，已完成或生成中的项目
type ProjectInfo struct {
	Name        string  `json:"name"`                  // 项目名称（目录名）
	DisplayName string  `json:"display_name"`          // 展示名称
	VideoPath   string  `json:"video,omitempty"`       // 最终视频路径
	Thumbnail   string  `json:"thumbnail,omitempty"`   // 缩略图路径
	Duration    float64 `json:"duration,omitempty"`    // 视频时长（秒）
	SizeMB      float64 `json:"size_mb"`               // 成品大小（MB）
	Created     int64   `json:"created"`               // 创建时间戳
	Status      string  `json:"status"`                // completed / generating
	HasMetadata bool    `json:"has_metadata"`          // 是否有发布元数据
	VideoType   string  `json:"video_type"`            // 视频类型
	ProgressID  string  `json:"progress_id,omitempty"` // 生成中任务的进度标识
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
