package model

import (
	"errors"
	"fmt"
)

// Phase 生成流水线阶段（用于区分失败环节）
type Phase string

const (
	PhaseScript Phase = "script" // 脚本生成
	PhaseAudio  Phase = "audio"  // 语音合成
	PhaseAsset  Phase = "asset"  // 素材获取
	PhaseRender Phase = "render" // 视频合成
)

// GenerationError 生成流水线的领域错误
// 携带失败阶段标记，调用方通过 Phase 分支处理而不是匹配错误文本
type GenerationError struct {
	Phase   Phase  // 失败阶段
	Message string // 错误描述
	Err     error  // 底层错误（可选）
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Phase, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Phase, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewScriptError 创建脚本阶段错误
func NewScriptError(message string, err error) *GenerationError {
	return &GenerationError{Phase: PhaseScript, Message: message, Err: err}
}

// NewAudioError 创建语音阶段错误
func NewAudioError(message string, err error) *GenerationError {
	return &GenerationError{Phase: PhaseAudio, Message: message, Err: err}
}

// NewAssetError 创建素材阶段错误
func NewAssetError(message string, err error) *GenerationError {
	return &GenerationError{Phase: PhaseAsset, Message: message, Err: err}
}

// NewRenderError 创建合成阶段错误
func NewRenderError(message string, err error) *GenerationError {
	return &GenerationError{Phase: PhaseRender, Message: message, Err: err}
}

// AsGenerationError 提取领域错误；非领域错误返回 nil
func AsGenerationError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	return nil
}
