package model

// 进度状态
const (
	StatusProcessing = "processing" // 生成中
	StatusCompleted  = "completed"  // 已完成
	StatusError      = "error"      // 失败
	StatusWaiting    = "waiting"    // 尚未开始（未知 progress_id 的默认状态）
)

// ProgressRecord 任务进度记录
// 同一 progress_id 的唯一事实来源，由编排器在每次状态迁移时写入
type ProgressRecord struct {
	Step       string `json:"step"`                  // 当前阶段名称
	Percentage int    `json:"percentage"`            // 进度百分比（单任务内单调不减）
	Status     string `json:"status"`                // processing / completed / error / waiting
	Topic      string `json:"topic,omitempty"`       // 视频主题
	VideoType  string `json:"video_type,omitempty"`  // 视频类型
	Details    string `json:"details,omitempty"`     // 人类可读的详情
	ProgressID string `json:"progress_id,omitempty"` // 进度标识
}

// WaitingProgress 未知/未开始任务的默认进度
func WaitingProgress() *ProgressRecord {
	return &ProgressRecord{
		Step:       "Waiting",
		Percentage: 0,
		Status:     StatusWaiting,
	}
}
