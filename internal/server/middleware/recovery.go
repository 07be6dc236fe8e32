package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"zenly/internal/model"
)

// Recovery 异常恢复中间件
// SSE 连接上的 panic 由流式协调器自行兜底，这里只处理普通请求
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Str("request_id", c.GetString("request_id")).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Code:    50000,
					Message: "Internal Server Error",
				})
			}
		}()
		c.Next()
	}
}
