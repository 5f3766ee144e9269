package handler

import (
	"crowdfund/internal/service"
	"crowdfund/pkg/logger"
	"crowdfund/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextTokenKey 会话令牌在gin.Context中的键名
	ContextTokenKey = "token"
)

// AuthMiddleware 令牌认证中间件
// 从 header 指定的请求头读取令牌，解析出用户ID后存入gin.Context
func AuthMiddleware(svc *service.UserService, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := c.GetHeader(header)
		id, found, err := svc.GetIDFromToken(c.Request.Context(), tok)
		if err != nil {
			logger.Error("令牌查询失败", zap.Error(err))
			response.InternalError(c, "令牌查询失败", err)
			c.Abort()
			return
		}
		if !found {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, id)
		c.Set(ContextTokenKey, tok)
		c.Next()
	}
}

// GetUserID 获取当前认证用户ID
func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetToken 获取当前请求携带的令牌
func GetToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}
