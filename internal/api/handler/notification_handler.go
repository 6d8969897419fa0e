package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/pkg/response"
)

// ListNotifications
// @Summary 通知列表
// @Tags 通知
// @Security BearerAuth
// @Param unread query bool false "只看未读"
// @Param limit query int false "数量" default(50)
// @Success 200 {object} response.Response{data=[]model.Notification}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.noticeService.List(c.Request.Context(), middleware.UserID(c), unread, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// MarkNotificationRead
// @Summary 标记已读
// @Tags 通知
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.noticeService.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllNotificationsRead
// @Summary 全部标记已读
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/read [post]
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.noticeService.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}
