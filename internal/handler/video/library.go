package video

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"mango/internal/model"
	"mango/internal/service"
)

// 项目名只允许目录安全字符
var projectNameRe = regexp.MustCompile(`^[\w-]+$`)

// List 列出视频库
// @Summary      列出视频库
// @Description  返回全部已生成和生成中的视频项目，按创建时间倒序
// @Tags         视频库
// @Produce      json
// @Success      200  {array}   model.ProjectInfo
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/videos [get]
func (h *Handler) List(c *gin.Context) {
	projects, err := h.library.ListProjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50003,
			Message: "Failed to list videos",
			Detail:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Metadata 获取项目发布元数据
// @Summary      获取视频元数据
// @Tags         视频库
// @Produce      json
// @Param        name  path      string  true  "项目名称"
// @Success      200   {object}  model.Metadata
// @Failure      400   {object}  model.ErrorResponse
// @Failure      404   {object}  model.ErrorResponse
// @Router       /api/metadata/{name} [get]
func (h *Handler) Metadata(c *gin.Context) {
	name, ok := h.projectName(c)
	if !ok {
		return
	}

	md, err := h.library.GetMetadata(name)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Code:    40401,
				Message: "Metadata not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50004,
			Message: "Failed to read metadata",
			Detail:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, md)
}

// Delete 删除视频项目
// @Summary      删除视频项目
// @Description  删除项目目录并从完成/进行中台账摘除
// @Tags         视频库
// @Produce      json
// @Param        name  path      string  true  "项目名称"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  model.ErrorResponse
// @Failure      404   {object}  model.ErrorResponse
// @Router       /api/videos/{name} [delete]
func (h *Handler) Delete(c *gin.Context) {
	name, ok := h.projectName(c)
	if !ok {
		return
	}

	if err := h.library.DeleteProject(name); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Code:    40402,
				Message: "Video not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50005,
			Message: "Failed to delete video",
			Detail:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

func (h *Handler) projectName(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if !projectNameRe.MatchString(name) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40002,
			Message: "Invalid video name",
		})
		return "", false
	}
	return name, true
}
