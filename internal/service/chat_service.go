package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"zenly/internal/ai"
	"zenly/internal/model"
	"zenly/internal/pkg/cache"
	"zenly/internal/pkg/id"
)

// ChatService 对话编排服务
// 危机检查永远在任何生成调用之前执行，这是第一优先级，不可跳过
type ChatService struct {
	gen    TextGenerator
	convs  ConversationStore
	msgs   MessageStore
	crisis *CrisisService
	ctxSvc *ContextService
	usage  ContextCache // 每日用量计数（可选）
}

// NewChatService 创建对话编排服务
func NewChatService(gen TextGenerator, convs ConversationStore, msgs MessageStore, crisis *CrisisService, ctxSvc *ContextService, usage ContextCache) *ChatService {
	return &ChatService{
		gen:    gen,
		convs:  convs,
		msgs:   msgs,
		crisis: crisis,
		ctxSvc: ctxSvc,
		usage:  usage,
	}
}

// GenerateResponse 同步对话
// 业务流程: 1. 校验/取会话 -> 2. 存用户消息 -> 3. 建上下文 -> 4. 危机检查 ->
// 5. 危机分支或正常生成分支 -> 6. 质量闸门 -> 7. 存助手消息 + 计数
func (s *ChatService) GenerateResponse(ctx context.Context, conversationID, userID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, model.ValidationError("message content is empty")
	}

	logger := log.With().Str("conversation_id", conversationID).Str("user_id", userID).Logger()

	// 1. 取会话
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, model.NotFoundError("conversation", conversationID)
	}

	// 2. 存用户消息；失败降级为告警，不阻断对话
	userMsg := &model.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        content,
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		logger.Warn().Err(err).Msg("failed to save user message")
	}
	s.countUsage(ctx, userID)

	// 3. 建上下文（内部自带降级，不会失败）
	pc := s.ctxSvc.BuildForConversation(ctx, conv)

	// 4. 危机检查：永远先于生成
	assessment := s.crisis.Assess(ctx, content, userID)

	// 5. 危机分支
	if assessment.IsCrisis {
		reply := s.buildCrisisReply(ctx, content, assessment)
		return s.saveAssistantMessage(ctx, conv, reply, &model.MessageMetadata{
			Model:     s.gen.Model(),
			IsCrisis:  true,
			RiskLevel: assessment.RiskLevel,
		})
	}

	// 正常生成分支
	start := time.Now()
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		System:   systemPromptFor(conv.Type, pc.Preferences.ResponseLength),
		Messages: buildChatMessages(pc, content),
	})
	if err != nil {
		logger.Error().Err(err).Msg("generation failed after retries")
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}

	// 6. 质量闸门：不过关就换兜底文案，这不是错误
	meta := &model.MessageMetadata{
		Model:     s.gen.Model(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if result.Usage != nil {
		meta.TokensUsed = result.Usage.TotalTokens
	}

	reply := result.Content
	if !passesQualityGate(reply) {
		logger.Warn().Msg("response failed quality gate, substituting fallback")
		reply = fallbackReply(conv.Type)
		meta.IsFallback = true
	}

	// 7. 存助手消息 + 计数
	msg, err := s.saveAssistantMessage(ctx, conv, reply, meta)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("tokens_used", meta.TokensUsed).
		Int64("latency_ms", meta.LatencyMs).
		Bool("is_fallback", meta.IsFallback).
		Msg("chat response generated")

	return msg, nil
}

// buildCrisisReply 构建危机回复：共情开场（AI 可选）+ 逐字拼接资源包
// AI 失败时直接用固定模板，危机路径绝不因生成失败而失败
func (s *ChatService) buildCrisisReply(ctx context.Context, content string, assessment *model.CrisisAssessment) string {
	opening := crisisReplyTemplate

	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:    fmt.Sprintf(crisisReplyPrompt, content),
		MaxTokens: 128,
	})
	if err == nil && passesQualityGate(result.Content) {
		opening = strings.TrimSpace(result.Content)
	}

	return opening + formatResources(assessment.Resources)
}

// saveAssistantMessage 保存助手消息并维护会话状态/计数
// 危机消息会把会话置为 crisis（单向迁移）
func (s *ChatService) saveAssistantMessage(ctx context.Context, conv *model.Conversation, content string, meta *model.MessageMetadata) (*model.Message, error) {
	msg := &model.Message{
		ID:             id.New(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        content,
		Metadata:       meta,
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, err
	}

	if meta != nil && meta.IsCrisis {
		if err := s.convs.MarkCrisis(ctx, conv.ID, meta.RiskLevel); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to mark conversation crisis")
		}
	}

	// 用户消息 + 助手消息各计一次
	if err := s.convs.IncrementMessageCount(ctx, conv.ID, 2); err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to increment message count")
	}

	return msg, nil
}

// countUsage 每日用量计数（外部存储，进程重启/多实例不丢）
func (s *ChatService) countUsage(ctx context.Context, userID string) {
	if s.usage == nil {
		return
	}
	key := cache.DailyUsageKey(userID, timeNow())
	if _, err := s.usage.IncrWithTTL(ctx, key, 48*time.Hour); err != nil {
		log.Warn().Err(err).Msg("failed to count daily usage")
	}
}
