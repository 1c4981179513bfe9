package id

import (
	"github.com/google/uuid"
)

// New 生成新的请求标识（UUID string格式）
func New() string {
	return uuid.New().String()
}
