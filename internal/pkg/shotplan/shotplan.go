// Package shotplan 计算视频镜头的节奏安排。
// 素材数量计算与合成时的镜头走位必须共用同一份计划，避免两处公式各自漂移。
package shotplan

import "math"

// Shot 最终视频中的一个镜头（连续时间段）
type Shot struct {
	Start    float64 // 起始时间（秒）
	Duration float64 // 时长（秒）
}

// Plan 根据音频总时长生成镜头计划。
// 前 introCount 个镜头使用 introDuration（开场快节奏），其余使用 bodyDuration，
// 最后一个镜头裁剪到恰好覆盖剩余时长。镜头计划无间隙、无重叠，时长之和精确等于
// audioDuration。音频不足以放下全部开场镜头时，整个计划按开场节奏铺满。
func Plan(audioDuration float64, introCount int, introDuration, bodyDuration float64) []Shot {
	if audioDuration <= 0 || introDuration <= 0 || bodyDuration <= 0 {
		return nil
	}

	var shots []Shot
	current := 0.0
	for current < audioDuration {
		target := bodyDuration
		if len(shots) < introCount {
			target = introDuration
		}

		remaining := audioDuration - current
		if target > remaining {
			target = remaining
		}

		shots = append(shots, Shot{Start: current, Duration: target})
		current += target
	}

	return shots
}

// Slots 计算需要预先获取的素材槽位数量：镜头数加上 buffer 个备用槽位，
// 备用槽位用于吸收合成阶段的单素材失败。
func Slots(audioDuration float64, introCount int, introDuration, bodyDuration float64, buffer int) int {
	return len(Plan(audioDuration, introCount, introDuration, bodyDuration)) + buffer
}

// Count 按公式计算镜头数量（与 Plan 等价，供只需要数量的调用方使用）。
// 音频时长不超过开场总时长时整体按开场节奏计算。
func Count(audioDuration float64, introCount int, introDuration, bodyDuration float64) int {
	if audioDuration <= 0 || introDuration <= 0 || bodyDuration <= 0 {
		return 0
	}

	introTotal := float64(introCount) * introDuration
	if audioDuration <= introTotal {
		return int(math.Ceil(audioDuration / introDuration))
	}
	return introCount + int(math.Ceil((audioDuration-introTotal)/bodyDuration))
}
