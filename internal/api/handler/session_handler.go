package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/response"
)

// CreateSession 记录一次练习
// @Summary 新建练习记录
// @Tags 练习
// @Security BearerAuth
// @Accept json
// @Param request body service.SessionInput true "练习信息"
// @Success 201 {object} response.Response{data=model.PracticeSession}
// @Router /api/v1/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var in service.SessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sess, err := h.practiceService.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, sess)
}

// ListSessions 自己的练习记录，新的在前
// @Summary 练习记录列表
// @Tags 练习
// @Security BearerAuth
// @Param limit query int false "数量，0 为全部" default(0)
// @Success 200 {object} response.Response{data=[]model.PracticeSession}
// @Router /api/v1/sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.practiceService.List(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// DeleteSession
// @Summary 删除练习记录
// @Tags 练习
// @Security BearerAuth
// @Param id path string true "记录ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.practiceService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// SessionStats 周统计按 tz 指定的时区分桶，缺省 UTC
// @Summary 练习统计
// @Tags 练习
// @Security BearerAuth
// @Param tz query string false "IANA 时区" default(UTC)
// @Success 200 {object} response.Response{data=service.PracticeStats}
// @Router /api/v1/sessions/stats [get]
func (h *Handler) SessionStats(c *gin.Context) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			response.BadRequest(c, "unknown time zone")
			return
		}
		loc = l
	}
	stats, err := h.practiceService.Stats(c.Request.Context(), middleware.UserID(c), time.Now().In(loc))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, stats)
}
