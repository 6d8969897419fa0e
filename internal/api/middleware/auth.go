package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pronia/pkg/response"
)

const userIDKey = "user_id"

// Authenticator 校验 token 返回用户 ID
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// RequireAuth 缺少或无效的 Bearer token 直接 401，不进入 handler
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		uid, err := a.Authenticate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// OptionalAuth 有合法 token 时注入用户 ID，否则按匿名继续
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c); ok {
			if uid, err := a.Authenticate(token); err == nil {
				c.Set(userIDKey, uid)
			}
		}
		c.Next()
	}
}

// UserID 当前请求的用户 ID，匿名时为空
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
