package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zenly/internal/model"
	"zenly/internal/pkg/ctxutil"
	"zenly/internal/pkg/id"
	"zenly/internal/repository"
	"zenly/internal/service"
)

// JournalHandler 日记处理器
type JournalHandler struct {
	journals   *repository.JournalRepo
	journalSvc *service.JournalService
}

// NewJournalHandler 创建日记处理器
func NewJournalHandler(journals *repository.JournalRepo, journalSvc *service.JournalService) *JournalHandler {
	return &JournalHandler{
		journals:   journals,
		journalSvc: journalSvc,
	}
}

// Create 创建日记
// @Summary      写日记
// @Tags         journal
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateJournalRequest  true  "日记内容"
// @Success      200      {object}  model.JournalEntry
// @Failure      400      {object}  model.ErrorResponse
// @Router       /journals [post]
func (h *JournalHandler) Create(c *gin.Context) {
	var req model.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	now := time.Now()
	entry := &model.JournalEntry{
		ID:        id.New(),
		UserID:    userID,
		Content:   req.Content,
		Mood:      req.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.journals.Create(c.Request.Context(), entry); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Get 获取日记详情
// @Summary      日记详情
// @Tags         journal
// @Produce      json
// @Param        id   path      string  true  "日记ID"
// @Success      200  {object}  model.JournalEntry
// @Failure      404  {object}  model.ErrorResponse
// @Router       /journals/{id} [get]
func (h *JournalHandler) Get(c *gin.Context) {
	entry, err := h.findOwned(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// List 获取最近日记
// @Summary      最近日记
// @Tags         journal
// @Produce      json
// @Param        days   query    int  false  "时间窗口（天）"  default(30)
// @Param        limit  query    int  false  "返回数量上限"    default(20)
// @Success      200    {array}  model.JournalEntry
// @Router       /journals [get]
func (h *JournalHandler) List(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		writeError(c, model.ValidationError("missing user identity"))
		return
	}

	days := parseInt64(c.Query("days"), 30)
	limit := parseInt64(c.Query("limit"), 20)
	since := time.Now().AddDate(0, 0, -int(days))

	entries, err := h.journals.ListRecent(c.Request.Context(), userID, since, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Analyze 触发日记分析
// @Summary      分析日记
// @Description  对指定日记并发执行情感、洞察、摘要、风险四路分析并保存结果
// @Tags         journal
// @Produce      json
// @Param        id   path      string  true  "日记ID"
// @Success      200  {object}  model.AnalyzeJournalResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /journals/{id}/analyze [post]
func (h *JournalHandler) Analyze(c *gin.Context) {
	entry, err := h.findOwned(c)
	if err != nil {
		writeError(c, err)
		return
	}

	analysis, err := h.journalSvc.AnalyzeJournal(c.Request.Context(), entry.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AnalyzeJournalResponse{
		JournalID: entry.ID,
		Analysis:  analysis,
	})
}

// findOwned 按 ID 查找并校验归属，归属不符按不存在处理
func (h *JournalHandler) findOwned(c *gin.Context) (*model.JournalEntry, error) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		return nil, model.ValidationError("missing user identity")
	}

	entry, err := h.journals.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, model.NotFoundError("journal", c.Param("id"))
	}
	return entry, nil
}
