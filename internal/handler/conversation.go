package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zenly/internal/model"
	"zenly/internal/pkg/cache"
	"zenly/internal/pkg/ctxutil"
	"zenly/internal/pkg/id"
	"zenly/internal/repository"
)

// ConversationHandler 会话管理处理器
type ConversationHandler struct {
	convs *repository.ConversationRepo
	msgs  *repository.MessageRepo
	cache *cache.RedisCache
}

// NewConversationHandler 创建会话管理处理器
func NewConversationHandler(convs *repository.ConversationRepo, msgs *repository.MessageRepo, redisCache *cache.RedisCache) *ConversationHandler {
	return &ConversationHandler{
		convs: convs,
		msgs:  msgs,
		cache: redisCache,
	}
}

// Create 创建会话
// @Summary      创建会话
// @Tags         conversation
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateConversationRequest  true  "会话参数"
// @Success      200      {object}  model.Conversation
// @Failure      400      {object}  model.ErrorResponse
// @Router       /conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req model.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !req.Type.IsValid() {
		writeError(c, model.ValidationError("invalid conversation type: %s", req.Type))
		return
	}

	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:        id.New(),
		UserID:    userID,
		Type:      req.Type,
		Status:    model.ConversationActive,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.convs.Create(c.Request.Context(), conv); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// List 获取当前用户的会话列表
// @Summary      会话列表
// @Tags         conversation
// @Produce      json
// @Param        limit   query     int  false  "返回数量上限"  default(20)
// @Param        offset  query     int  false  "偏移量"        default(0)
// @Success      200     {array}   model.Conversation
// @Router       /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	limit := parseInt64(c.Query("limit"), 20)
	offset := parseInt64(c.Query("offset"), 0)

	convs, err := h.convs.ListByUserID(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, convs)
}

// Get 获取单个会话
// @Summary      会话详情
// @Tags         conversation
// @Produce      json
// @Param        id   path      string  true  "会话ID"
// @Success      200  {object}  model.Conversation
// @Failure      404  {object}  model.ErrorResponse
// @Router       /conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	conv, err := h.convs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.UserID != userID {
		writeError(c, model.NotFoundError("conversation", c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, conv)
}

// ListMessages 获取会话消息（时间正序）
// @Summary      消息列表
// @Tags         conversation
// @Produce      json
// @Param        id     path     string  true   "会话ID"
// @Param        limit  query    int     false  "返回数量上限"  default(50)
// @Success      200    {array}  model.Message
// @Failure      404    {object} model.ErrorResponse
// @Router       /conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	conv, err := h.convs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.UserID != userID {
		writeError(c, model.NotFoundError("conversation", c.Param("id")))
		return
	}

	limit := parseInt64(c.Query("limit"), 50)
	msgs, err := h.msgs.ListByConversation(c.Request.Context(), conv.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// Usage 获取当前用户今日 AI 调用次数
// @Summary      今日用量
// @Tags         conversation
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /usage/today [get]
func (h *ConversationHandler) Usage(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	var count int64
	if h.cache != nil {
		// 计数缺失视为 0，Redis 不可用时也按 0 返回
		_ = h.cache.Get(c.Request.Context(), cache.DailyUsageKey(userID, time.Now()), &count)
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  time.Now().Format("2006-01-02"),
		"count": count,
	})
}

func parseInt64(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
