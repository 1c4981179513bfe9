package video

import (
	"mango/internal/service"
)

// Handler 视频生成与视频库处理器
type Handler struct {
	generator *service.GeneratorService
	library   *service.LibraryService
}

// NewHandler 创建视频处理器
func NewHandler(generator *service.GeneratorService, library *service.LibraryService) *Handler {
	return &Handler{
		generator: generator,
		library:   library,
	}
}
