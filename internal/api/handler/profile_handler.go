package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/response"
)

// GetProfile 查看资料；本人可见完整资料，其他人只见公开字段
// @Summary 查看用户资料
// @Tags 资料
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.PublicProfile}
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{id} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	u, err := h.profileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, profileView(c, u))
}

// UpdateProfile 只能修改自己的资料
// @Summary 修改资料
// @Tags 资料
// @Security BearerAuth
// @Accept json
// @Param id path string true "用户ID"
// @Param request body service.ProfilePatch true "修改字段"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 403 {object} response.Response
// @Router /api/v1/profiles/{id} [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	if c.Param("id") != middleware.UserID(c) {
		response.Forbidden(c, service.ErrForbidden.Error())
		return
	}
	var patch service.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.profileService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, u)
}

// SearchProfiles 按用户名前缀搜索
// @Summary 搜索用户
// @Tags 资料
// @Param q query string true "用户名前缀"
// @Param limit query int false "数量" default(20)
// @Success 200 {object} response.Response{data=[]model.PublicProfile}
// @Router /api/v1/profiles [get]
func (h *Handler) SearchProfiles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	users, err := h.profileService.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	list := make([]*model.PublicProfile, len(users))
	for i, u := range users {
		list[i] = u.Public()
	}
	response.Success(c, list)
}

// ListUserPosts 某用户发布的动态
// @Summary 用户动态列表
// @Tags 动态
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/profiles/{id}/posts [get]
func (h *Handler) ListUserPosts(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.postService.ListByAuthor(c.Request.Context(), middleware.UserID(c), c.Param("id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// profileView 邮箱只返回给本人
func profileView(c *gin.Context, u *model.User) interface{} {
	if u.ID == middleware.UserID(c) {
		return u
	}
	return u.Public()
}
