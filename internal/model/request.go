package model

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	Type  ConversationType `json:"type" binding:"required"`
	Title string           `json:"title,omitempty"`
}

// CreateJournalRequest 创建日记请求
type CreateJournalRequest struct {
	Content string `json:"content" binding:"required"`
	Mood    int    `json:"mood,omitempty" binding:"omitempty,min=1,max=10"`
}
