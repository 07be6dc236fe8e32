package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"zenly/internal/ai"
	"zenly/internal/config"
	"zenly/internal/model"
	"zenly/internal/pkg/cache"
	"zenly/internal/pkg/crisistools"
	"zenly/internal/pkg/id"
)

// EventSink 流式事件出口
// 有序事件流才是协议本体，传输机制（SSE 等）由 handler 层适配
type EventSink interface {
	Send(event model.StreamEvent) error
	Closed() bool
}

// StreamService 流式会话协调器
// 会话状态机: connected -> message-saved -> ai-message-started -> chunk* ->
// (crisis | crisis-detected)? -> complete | error
// 注册表是进程内共享状态，互斥锁保护；过期会话由清扫器兜底回收
type StreamService struct {
	gen    TextGenerator
	convs  ConversationStore
	msgs   MessageStore
	crisis *CrisisService
	ctxSvc *ContextService
	usage  ContextCache
	cfg    config.StreamConfig
	rescan int

	mu       sync.Mutex
	sessions map[string]*model.StreamSession
}

// NewStreamService 创建流式协调器
func NewStreamService(gen TextGenerator, convs ConversationStore, msgs MessageStore, crisis *CrisisService, ctxSvc *ContextService, usage ContextCache, cfg config.StreamConfig, rescanInterval int) *StreamService {
	if rescanInterval < 1 {
		rescanInterval = 5
	}
	return &StreamService{
		gen:      gen,
		convs:    convs,
		msgs:     msgs,
		crisis:   crisis,
		ctxSvc:   ctxSvc,
		usage:    usage,
		cfg:      cfg,
		rescan:   rescanInterval,
		sessions: make(map[string]*model.StreamSession),
	}
}

// Run 执行一次完整的流式对话会话
// 注册表清理在 defer 中，无论成功、失败还是 panic 都会执行
func (s *StreamService) Run(ctx context.Context, conversationID, userID, content string, sink EventSink) error {
	if strings.TrimSpace(content) == "" {
		return model.ValidationError("message content is empty")
	}

	session := s.register(conversationID, userID)
	logger := log.With().
		Str("session_id", session.ID).
		Str("conversation_id", conversationID).
		Str("user_id", userID).
		Logger()

	defer func() {
		s.unregister(session.ID)
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("stream session panicked")
			s.sendEvent(sink, model.StreamEvent{
				Type: model.EventError,
				Data: model.ErrorPayload{Message: "internal error", Retryable: false},
			})
		}
	}()

	s.sendEvent(sink, model.StreamEvent{Type: model.EventConnected})

	// 取会话
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil || conv.UserID != userID {
		if err == nil {
			err = model.NotFoundError("conversation", conversationID)
		}
		s.sendEvent(sink, model.StreamEvent{
			Type: model.EventError,
			Data: model.ErrorPayload{Message: "conversation not found", Retryable: false},
		})
		return err
	}

	// 生成前先持久化用户消息
	userMsg := &model.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        content,
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		logger.Warn().Err(err).Msg("failed to save user message")
	}
	s.setState(session.ID, "message-saved")
	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventMessageSaved,
		Data: model.MessageSavedPayload{MessageID: userMsg.ID},
	})

	// 危机门禁：命中即完全抢占生成
	assessment := s.crisis.Assess(ctx, content, userID)
	if assessment.IsCrisis {
		return s.runCrisisPath(ctx, conv, assessment, content, sink, session, logger)
	}

	// 上下文 + 占位助手消息
	pc := s.ctxSvc.BuildForConversation(ctx, conv)
	assistantMsg := &model.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Status:         model.MessageSending,
		Streaming:      &model.StreamingState{},
	}
	if err := s.msgs.Create(ctx, assistantMsg); err != nil {
		logger.Warn().Err(err).Msg("failed to create placeholder assistant message")
	}
	s.setState(session.ID, "ai-message-started")
	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventAIMessageStarted,
		Data: model.AIMessageStartedPayload{MessageID: assistantMsg.ID},
	})

	// 建立生成流
	start := time.Now()
	chunks, err := s.gen.GenerateStream(ctx, &ai.GenerateRequest{
		System:   systemPromptFor(conv.Type, pc.Preferences.ResponseLength),
		Messages: buildChatMessages(pc, content),
	})
	if err != nil {
		return s.failStream(ctx, assistantMsg.ID, err, sink, logger)
	}

	return s.pump(ctx, conv, assistantMsg, chunks, sink, session, start, logger)
}

// pump 消费生成流：累积、推送、checkpoint 持久化、周期性危机复扫
func (s *StreamService) pump(ctx context.Context, conv *model.Conversation, assistantMsg *model.Message, chunks <-chan *ai.Chunk, sink EventSink, session *model.StreamSession, start time.Time, logger zerolog.Logger) error {
	var (
		accumulated   strings.Builder
		authoritative string
		chunkCount    int
		usage         *model.TokenUsage
		midCrisis     bool
	)

	s.setState(session.ID, "streaming")

	for chunk := range chunks {
		if chunk.Err != nil {
			return s.failStream(ctx, assistantMsg.ID, chunk.Err, sink, logger)
		}
		if chunk.Done {
			usage = chunk.Usage
			authoritative = chunk.Content
			break
		}

		accumulated.WriteString(chunk.Content)
		chunkCount++
		s.incChunk(session.ID)

		s.sendEvent(sink, model.StreamEvent{
			Type: model.EventChunk,
			Data: model.ChunkPayload{Content: chunk.Content, Index: chunkCount - 1},
		})

		// 每 K 个 chunk 做一次持久化 checkpoint
		if chunkCount%s.cfg.CheckpointEvery == 0 {
			if err := s.msgs.UpdateContent(ctx, assistantMsg.ID, accumulated.String(), chunkCount); err != nil {
				logger.Warn().Err(err).Msg("checkpoint persistence failed")
			}
		}

		// 每 rescan 个 chunk 对累积文本复扫危机关键词；命中即抢占生成
		if chunkCount%s.rescan == 0 && crisistools.ContainsHighRisk(accumulated.String()) {
			midCrisis = true
			break
		}
	}

	final := reconcileFinal(accumulated.String(), authoritative)
	meta := &model.MessageMetadata{
		Model:     s.gen.Model(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if usage != nil {
		meta.TokensUsed = usage.TotalTokens
	}

	if midCrisis {
		// 生成文本内部出现危机内容：推送 crisis 事件并终止本次生成
		s.setState(session.ID, "crisis")
		bundle := crisistools.BundleForLevel(model.RiskHigh)
		s.sendEvent(sink, model.StreamEvent{
			Type: model.EventCrisis,
			Data: model.CrisisPayload{RiskLevel: model.RiskHigh, Resources: bundle},
		})
		if err := s.convs.MarkCrisis(ctx, conv.ID, model.RiskHigh); err != nil {
			logger.Warn().Err(err).Msg("failed to mark conversation crisis")
		}
		meta.IsCrisis = true
		meta.RiskLevel = model.RiskHigh
	}

	// complete：以累计内容为准持久化并结算计数
	if err := s.msgs.MarkDelivered(ctx, assistantMsg.ID, final, meta, chunkCount); err != nil {
		logger.Warn().Err(err).Msg("failed to mark message delivered")
	}
	if err := s.convs.IncrementMessageCount(ctx, conv.ID, 2); err != nil {
		logger.Warn().Err(err).Msg("failed to increment message count")
	}
	s.countUsage(ctx, conv.UserID)

	s.setState(session.ID, "complete")
	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventComplete,
		Data: model.CompletePayload{
			MessageID:  assistantMsg.ID,
			Content:    final,
			ChunkCount: chunkCount,
			IsCrisis:   midCrisis,
		},
	})

	logger.Info().
		Int("chunks", chunkCount).
		Bool("mid_stream_crisis", midCrisis).
		Dur("duration", time.Since(start)).
		Msg("stream session completed")

	return nil
}

// reconcileFinal 终态内容对账：complete 携带权威全文时以权威版本为准
func reconcileFinal(accumulated, authoritative string) string {
	if authoritative != "" {
		return authoritative
	}
	return accumulated
}

// runCrisisPath 生成前命中危机：直接推送危机消息，完全跳过生成
func (s *StreamService) runCrisisPath(ctx context.Context, conv *model.Conversation, assessment *model.CrisisAssessment, content string, sink EventSink, session *model.StreamSession, logger zerolog.Logger) error {
	s.setState(session.ID, "crisis")

	opening := crisisReplyTemplate
	if result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:    fmt.Sprintf(crisisReplyPrompt, content),
		MaxTokens: 128,
	}); err == nil && passesQualityGate(result.Content) {
		opening = strings.TrimSpace(result.Content)
	}
	reply := opening + formatResources(assessment.Resources)

	msg := &model.Message{
		ID:             id.New(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        reply,
		Metadata: &model.MessageMetadata{
			Model:     s.gen.Model(),
			IsCrisis:  true,
			RiskLevel: assessment.RiskLevel,
		},
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		logger.Warn().Err(err).Msg("failed to save crisis message")
	}
	if err := s.convs.MarkCrisis(ctx, conv.ID, assessment.RiskLevel); err != nil {
		logger.Warn().Err(err).Msg("failed to mark conversation crisis")
	}
	if err := s.convs.IncrementMessageCount(ctx, conv.ID, 2); err != nil {
		logger.Warn().Err(err).Msg("failed to increment message count")
	}
	s.countUsage(ctx, conv.UserID)

	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventCrisisDetected,
		Data: model.CrisisPayload{
			RiskLevel: assessment.RiskLevel,
			Message:   reply,
			Resources: assessment.Resources,
		},
	})
	s.setState(session.ID, "complete")
	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventComplete,
		Data: model.CompletePayload{MessageID: msg.ID, Content: reply, IsCrisis: true},
	})

	logger.Info().Str("risk_level", assessment.RiskLevel.String()).Msg("stream pre-empted by crisis")
	return nil
}

// countUsage 流式生成同样计入每日用量
func (s *StreamService) countUsage(ctx context.Context, userID string) {
	if s.usage == nil {
		return
	}
	key := cache.DailyUsageKey(userID, timeNow())
	if _, err := s.usage.IncrWithTTL(ctx, key, 48*time.Hour); err != nil {
		log.Warn().Err(err).Msg("failed to count daily usage")
	}
}

// failStream 推送 error 终态事件并标记占位消息失败
func (s *StreamService) failStream(ctx context.Context, messageID string, cause error, sink EventSink, logger zerolog.Logger) error {
	retryable := false
	if pe := ai.Classify(cause); pe != nil {
		retryable = pe.Retryable
	}

	if err := s.msgs.MarkErrored(ctx, messageID); err != nil {
		logger.Warn().Err(err).Msg("failed to mark message errored")
	}

	s.sendEvent(sink, model.StreamEvent{
		Type: model.EventError,
		Data: model.ErrorPayload{Message: "generation failed", Retryable: retryable},
	})

	logger.Error().Err(cause).Bool("retryable", retryable).Msg("stream session failed")
	return fmt.Errorf("%w: %v", model.ErrGenerationFailed, cause)
}

// sendEvent 推送事件；sink 已关闭时静默丢弃
func (s *StreamService) sendEvent(sink EventSink, event model.StreamEvent) {
	if sink.Closed() {
		return
	}
	if err := sink.Send(event); err != nil {
		log.Warn().Err(err).Str("event", event.Type.String()).Msg("failed to push stream event")
	}
}

// register 注册会话到活跃注册表
func (s *StreamService) register(conversationID, userID string) *model.StreamSession {
	session := &model.StreamSession{
		ID:             id.New(),
		ConversationID: conversationID,
		UserID:         userID,
		StartedAt:      timeNow(),
		State:          "connected",
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// unregister 无条件移除会话
func (s *StreamService) unregister(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// setState 更新会话状态
func (s *StreamService) setState(sessionID, state string) {
	s.mu.Lock()
	if session, ok := s.sessions[sessionID]; ok {
		session.State = state
	}
	s.mu.Unlock()
}

// incChunk 累加会话 chunk 计数
func (s *StreamService) incChunk(sessionID string) {
	s.mu.Lock()
	if session, ok := s.sessions[sessionID]; ok {
		session.ChunkCount++
	}
	s.mu.Unlock()
}

// ActiveSessions 当前活跃会话数
func (s *StreamService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RemoveStale 清理超龄会话，返回清理数量
// 与状态机无关的兜底，防止异常路径泄漏注册表条目
func (s *StreamService) RemoveStale(maxAge time.Duration) int {
	cutoff := timeNow().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for sid, session := range s.sessions {
		if session.StartedAt.Before(cutoff) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// StartSweeper 启动过期会话清扫循环，ctx 取消时退出
func (s *StreamService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.RemoveStale(s.cfg.StaleAfter); removed > 0 {
					log.Warn().Int("removed", removed).Msg("swept stale stream sessions")
				}
			}
		}
	}()
}
