package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenly/internal/model"
)

// writeError 将 service 层错误映射为统一的错误响应
// 错误码约定: 400xx 输入错误, 404xx 资源不存在, 500xx 服务端错误
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request",
			Detail:  err.Error(),
		})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: "Resource not found",
			Detail:  err.Error(),
		})
	case errors.Is(err, model.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Code:    50201,
			Message: "AI generation failed",
			Detail:  err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50000,
			Message: "Internal Server Error",
			Detail:  err.Error(),
		})
	}
}

// bindError 请求体解析失败的统一响应
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    40001,
		Message: "Invalid request body",
		Detail:  err.Error(),
	})
}
