package model

import (
	"time"
)

// Conversation 会话实体
// ID使用UUID格式（string），避免ObjectID转换的麻烦
type Conversation struct {
	ID             string             `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	Type           ConversationType   `bson:"type" json:"type"`     // 会话类型
	Status         ConversationStatus `bson:"status" json:"status"` // 会话状态
	Title          string             `bson:"title,omitempty" json:"title,omitempty"`
	MessageCount   int                `bson:"message_count" json:"message_count"`
	CrisisDetected bool               `bson:"crisis_detected" json:"crisis_detected"`
	CrisisLevel    RiskLevel          `bson:"crisis_level,omitempty" json:"crisis_level,omitempty"`
	CrisisAt       *time.Time         `bson:"crisis_at,omitempty" json:"crisis_at,omitempty"`
	LastMessageAt  *time.Time         `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// ConversationType 会话类型
type ConversationType string

const (
	ConversationJournalReflection ConversationType = "journal-reflection" // 日记反思
	ConversationGeneralChat       ConversationType = "general-chat"       // 普通聊天
)

// IsValid 检查类型是否有效
func (t ConversationType) IsValid() bool {
	return t == ConversationJournalReflection || t == ConversationGeneralChat
}

// String 返回类型字符串
func (t ConversationType) String() string {
	return string(t)
}

// ConversationStatus 会话状态
// 危机升级是单向的：一旦进入 crisis，编排层不会再把它改回 active
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"   // 进行中
	ConversationCrisis   ConversationStatus = "crisis"   // 检测到危机
	ConversationArchived ConversationStatus = "archived" // 已归档
)

// IsValid 检查状态是否有效
func (s ConversationStatus) IsValid() bool {
	return s == ConversationActive || s == ConversationCrisis || s == ConversationArchived
}

// String 返回状态字符串
func (s ConversationStatus) String() string {
	return string(s)
}
