package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"zenly/internal/model"
	"zenly/internal/pkg/ctxutil"
	"zenly/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chatSvc   *service.ChatService
	streamSvc *service.StreamService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chatSvc *service.ChatService, streamSvc *service.StreamService) *ChatHandler {
	return &ChatHandler{
		chatSvc:   chatSvc,
		streamSvc: streamSvc,
	}
}

// SendMessage 同步对话接口
// @Summary      发送消息（同步）
// @Description  在指定会话中发送一条消息，阻塞直到 AI 回复生成完成
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "会话ID"
// @Param        request  body      model.SendMessageRequest  true  "消息内容"
// @Success      200      {object}  model.SendMessageResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	msg, err := h.chatSvc.GenerateResponse(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SendMessageResponse{Message: msg})
}

// StreamMessage 流式对话接口 (SSE)
// @Summary      发送消息（流式）
// @Description  在指定会话中发送一条消息，通过 SSE 推送有序事件流。EventSource 无法设置 header，token 可经 query 传入
// @Tags         chat
// @Produce      text/event-stream
// @Param        id       path   string  true  "会话ID"
// @Param        content  query  string  true  "消息内容"
// @Param        token    query  string  false "JWT token"
// @Success      200  {string}  string  "SSE event stream"
// @Failure      400  {object}  model.ErrorResponse
// @Router       /conversations/{id}/stream [get]
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	content := c.Query("content")
	if content == "" {
		writeError(c, model.ValidationError("content is required"))
		return
	}

	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	// 设置 SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	sink := newSSESink(c)
	if err := h.streamSvc.Run(c.Request.Context(), c.Param("id"), userID, content, sink); err != nil {
		// 终态 error 事件已经推给客户端，这里只留服务端日志
		log.Warn().Err(err).Str("conversation_id", c.Param("id")).Msg("stream session ended with error")
	}
}
