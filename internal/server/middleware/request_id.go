package middleware

import (
	"github.com/gin-gonic/gin"

	"zenly/internal/pkg/id"
)

// RequestID 请求 ID 中间件
// 优先沿用客户端传入的 X-Request-ID，没有则生成新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}
