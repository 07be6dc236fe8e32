package model

import (
	"time"
)

// Message 消息实体（独立集合，按 created_at 严格时序）
type Message struct {
	ID             string           `bson:"_id,omitempty" json:"id"`
	ConversationID string           `bson:"conversation_id" json:"conversation_id"`
	Role           MessageRole      `bson:"role" json:"role"`
	Content        string           `bson:"content" json:"content"`
	Status         MessageStatus    `bson:"status" json:"status"`
	Metadata       *MessageMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Streaming      *StreamingState  `bson:"streaming,omitempty" json:"streaming,omitempty"`
	CreatedAt      time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `bson:"updated_at" json:"updated_at"`
}

// MessageMetadata 消息元数据
type MessageMetadata struct {
	Model      string    `bson:"model,omitempty" json:"model,omitempty"`
	IsCrisis   bool      `bson:"is_crisis,omitempty" json:"is_crisis,omitempty"`
	RiskLevel  RiskLevel `bson:"risk_level,omitempty" json:"risk_level,omitempty"`
	IsFallback bool      `bson:"is_fallback,omitempty" json:"is_fallback,omitempty"` // 质量闸门替换了生成内容
	TokensUsed int       `bson:"tokens_used,omitempty" json:"tokens_used,omitempty"`
	LatencyMs  int64     `bson:"latency_ms,omitempty" json:"latency_ms,omitempty"`
}

// StreamingState 流式消息子状态
type StreamingState struct {
	ChunksReceived int  `bson:"chunks_received" json:"chunks_received"`
	Complete       bool `bson:"complete" json:"complete"`
}

// MessageRole 消息角色
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// IsValid 检查角色是否有效
func (r MessageRole) IsValid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// String 返回角色字符串
func (r MessageRole) String() string {
	return string(r)
}

// MessageStatus 消息投递状态
type MessageStatus string

const (
	MessageSending   MessageStatus = "sending"   // 流式投递中
	MessageDelivered MessageStatus = "delivered" // 已投递
	MessageErrored   MessageStatus = "errored"   // 投递失败
)

// String 返回状态字符串
func (s MessageStatus) String() string {
	return string(s)
}
