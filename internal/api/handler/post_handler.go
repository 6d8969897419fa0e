package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/response"
)

// CreatePost 发布动态（posts + outbox 同事务，扇出异步）
// @Summary 发布动态
// @Tags 动态
// @Security BearerAuth
// @Accept json
// @Param request body service.PostInput true "动态内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var in service.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.postService.Publish(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// GetPost
// @Summary 动态详情
// @Tags 动态
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} response.Response{data=service.PostView}
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 仅作者可删
// @Summary 删除动态
// @Tags 动态
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// LikePost 重复点赞返回 409
// @Summary 点赞
// @Tags 动态
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} response.Response{data=service.LikeResult}
// @Failure 409 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	res, err := h.postService.Like(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// UnlikePost 未点赞返回 404
// @Summary 取消点赞
// @Tags 动态
// @Security BearerAuth
// @Param id path string true "动态ID"
// @Success 200 {object} response.Response{data=service.LikeResult}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	res, err := h.postService.Unlike(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// Feed 时间线
// @Summary 我的时间线
// @Tags 动态
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.postService.Feed(c.Request.Context(), middleware.UserID(c), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
