package model

// SendMessageResponse 同步对话响应
type SendMessageResponse struct {
	Message *Message `json:"message"`
}

// AnalyzeJournalResponse 日记分析响应
type AnalyzeJournalResponse struct {
	JournalID string           `json:"journal_id"`
	Analysis  *JournalAnalysis `json:"analysis"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
