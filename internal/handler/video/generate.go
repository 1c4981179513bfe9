package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mango/internal/model"
	"mango/internal/service"
)

// Generate 提交视频生成任务
// @Summary      提交视频生成任务
// @Description  异步生成一条旁白视频，返回进度查询标识；并发名额占满时任务先排队
// @Tags         视频生成
// @Accept       json
// @Produce      json
// @Param        request  body      model.GenerateRequest  true  "生成请求"
// @Success      200      {object}  model.GenerateResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /api/generate [post]
func (h *Handler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	resp, err := h.generator.StartGeneration(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateTopic):
			c.JSON(http.StatusConflict, model.ErrorResponse{
				Code:    40901,
				Message: "A video for this topic has already been generated",
			})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Code:    50001,
				Message: "Failed to start video generation",
				Detail:  err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Progress 查询任务进度
// @Summary      查询生成进度
// @Description  按进度标识查询任务状态，未知标识返回 waiting
// @Tags         视频生成
// @Produce      json
// @Param        progress_id  path      string  true  "进度标识"
// @Success      200          {object}  model.ProgressRecord
// @Router       /api/progress/{progress_id} [get]
func (h *Handler) Progress(c *gin.Context) {
	progressID := c.Param("progress_id")
	c.JSON(http.StatusOK, h.generator.GetProgress(progressID))
}

// CleanupStale 清理超时的生成记录
// @Summary      清理残留任务
// @Description  移除开始超过1小时仍未完成的进行中记录
// @Tags         视频生成
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/cleanup [post]
func (h *Handler) CleanupStale(c *gin.Context) {
	removed, err := h.generator.CleanupStale()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50002,
			Message: "Failed to cleanup stale generations",
			Detail:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"count":   len(removed),
	})
}
