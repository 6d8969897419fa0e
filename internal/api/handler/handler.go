package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/response"
)

// Handler 聚合全部 HTTP handler 依赖
type Handler struct {
	authService     service.AuthService
	profileService  service.ProfileService
	practiceService service.PracticeService
	libraryService  service.LibraryService
	relService      service.RelationshipService
	postService     service.PostService
	noticeService   service.NotificationService
}

// Services 构造 Handler 所需的服务集合
type Services struct {
	Auth          service.AuthService
	Profiles      service.ProfileService
	Practice      service.PracticeService
	Library       service.LibraryService
	Relations     service.RelationshipService
	Posts         service.PostService
	Notifications service.NotificationService
}

func New(s Services) *Handler {
	return &Handler{
		authService:     s.Auth,
		profileService:  s.Profiles,
		practiceService: s.Practice,
		libraryService:  s.Library,
		relService:      s.Relations,
		postService:     s.Posts,
		noticeService:   s.Notifications,
	}
}

// writeError 领域错误 -> HTTP 状态码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrFollowSelf), errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}
