package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/pkg/response"
)

// Follow 建立关注（计数异步写入）
// @Summary 关注用户
// @Tags 关系链
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "被关注用户ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/relations/{user_id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	target := c.Param("user_id")
	if err := h.relService.Follow(c.Request.Context(), middleware.UserID(c), target); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": target, "following": true})
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "被关注用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/follow [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	target := c.Param("user_id")
	if err := h.relService.Unfollow(c.Request.Context(), middleware.UserID(c), target); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": target, "following": false})
}

// FollowStatus 当前用户是否已关注
// @Summary 关注状态
// @Tags 关系链
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/follow [get]
func (h *Handler) FollowStatus(c *gin.Context) {
	target := c.Param("user_id")
	ok, err := h.relService.IsFollowing(c.Request.Context(), middleware.UserID(c), target)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": target, "following": ok})
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.relService.ListFollowing(c.Request.Context(), c.Param("user_id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表（Redis ID 索引）
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.relService.ListFollowers(c.Request.Context(), c.Param("user_id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ReconcileCounts 以关注表为准修复计数
// @Summary 修复关注计数
// @Tags 关系链
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.PublicProfile}
// @Router /api/v1/relations/{user_id}/reconcile [post]
func (h *Handler) ReconcileCounts(c *gin.Context) {
	u, err := h.relService.ReconcileCounts(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, profileView(c, u))
}
