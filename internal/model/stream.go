package model

import (
	"time"
)

// StreamEventType 流式事件类型
// 事件顺序固定: connected -> message-saved -> ai-message-started -> chunk* ->
// (crisis-detected | crisis)? -> complete | error
type StreamEventType string

const (
	EventConnected        StreamEventType = "connected"
	EventMessageSaved     StreamEventType = "message-saved"
	EventAIMessageStarted StreamEventType = "ai-message-started"
	EventChunk            StreamEventType = "chunk"
	EventCrisis           StreamEventType = "crisis"          // 生成中途命中危机关键词
	EventCrisisDetected   StreamEventType = "crisis-detected" // 生成前即检测到危机
	EventComplete         StreamEventType = "complete"
	EventError            StreamEventType = "error"
)

// String 返回事件类型字符串
func (t StreamEventType) String() string {
	return string(t)
}

// IsTerminal 是否为终态事件（终态事件之后必须关闭通道）
func (t StreamEventType) IsTerminal() bool {
	return t == EventComplete || t == EventError
}

// StreamEvent 推送给客户端的单个事件
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Data any             `json:"data,omitempty"`
}

// ChunkPayload chunk 事件负载
type ChunkPayload struct {
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// MessageSavedPayload message-saved 事件负载
type MessageSavedPayload struct {
	MessageID string `json:"message_id"`
}

// AIMessageStartedPayload ai-message-started 事件负载
type AIMessageStartedPayload struct {
	MessageID string `json:"message_id"`
}

// CrisisPayload crisis / crisis-detected 事件负载
type CrisisPayload struct {
	RiskLevel RiskLevel       `json:"risk_level"`
	Message   string          `json:"message,omitempty"`
	Resources *ResourceBundle `json:"resources,omitempty"`
}

// CompletePayload complete 事件负载
// Content 为权威全文；若与 chunk 拼接结果不一致，以 Content 为准
type CompletePayload struct {
	MessageID  string `json:"message_id"`
	Content    string `json:"content,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	IsCrisis   bool   `json:"is_crisis,omitempty"`
}

// ErrorPayload error 事件负载
type ErrorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StreamSession 进程内的流式会话（不落库）
type StreamSession struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	StartedAt      time.Time `json:"started_at"`
	ChunkCount     int       `json:"chunk_count"`
	State          string    `json:"state"`
}
