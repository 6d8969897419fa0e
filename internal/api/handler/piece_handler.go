package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/api/middleware"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/response"
)

// CreatePiece
// @Summary 曲库新增曲目
// @Tags 曲库
// @Security BearerAuth
// @Accept json
// @Param request body service.PieceInput true "曲目"
// @Success 201 {object} response.Response{data=model.LibraryPiece}
// @Router /api/v1/pieces [post]
func (h *Handler) CreatePiece(c *gin.Context) {
	var in service.PieceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.libraryService.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// ListPieces
// @Summary 曲库列表
// @Tags 曲库
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.LibraryPiece}
// @Router /api/v1/pieces [get]
func (h *Handler) ListPieces(c *gin.Context) {
	list, err := h.libraryService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// GetPiece
// @Summary 曲目详情
// @Tags 曲库
// @Security BearerAuth
// @Param id path string true "曲目ID"
// @Success 200 {object} response.Response{data=model.LibraryPiece}
// @Router /api/v1/pieces/{id} [get]
func (h *Handler) GetPiece(c *gin.Context) {
	p, err := h.libraryService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePiece 局部更新
// @Summary 修改曲目
// @Tags 曲库
// @Security BearerAuth
// @Accept json
// @Param id path string true "曲目ID"
// @Param request body service.PiecePatch true "修改字段"
// @Success 200 {object} response.Response{data=model.LibraryPiece}
// @Router /api/v1/pieces/{id} [patch]
func (h *Handler) UpdatePiece(c *gin.Context) {
	var patch service.PiecePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.libraryService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePiece
// @Summary 删除曲目
// @Tags 曲库
// @Security BearerAuth
// @Param id path string true "曲目ID"
// @Success 200 {object} response.Response
// @Router /api/v1/pieces/{id} [delete]
func (h *Handler) DeletePiece(c *gin.Context) {
	if err := h.libraryService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}
