package model

import (
	"time"
)

// PromptContext 一次生成请求的上下文窗口（临时对象，每次请求重建）
type PromptContext struct {
	Profile        *ProfileSnippet  `json:"profile,omitempty"`
	RecentJournals []JournalSnippet `json:"recent_journals,omitempty"`
	History        []HistoryMessage `json:"history,omitempty"`
	Patterns       *Patterns        `json:"patterns,omitempty"`
	Preferences    Preferences      `json:"preferences"`
	Minimal        bool             `json:"minimal,omitempty"` // 所有数据源都不可用时的兜底标记
}

// ProfileSnippet 用户画像片段
type ProfileSnippet struct {
	Nickname string `json:"nickname,omitempty"`
	Year     string `json:"year,omitempty"`
	Campus   string `json:"campus,omitempty"`
	Pronouns string `json:"pronouns,omitempty"`
}

// JournalSnippet 日记片段（内容已截断）
type JournalSnippet struct {
	Content   string    `json:"content"`
	Mood      int       `json:"mood,omitempty"`
	Sentiment float64   `json:"sentiment,omitempty"`
	RiskLevel RiskLevel `json:"risk_level,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryMessage 会话历史片段（内容已截断，时间正序）
type HistoryMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Patterns 从日记窗口推导的行为模式
type Patterns struct {
	MoodTrend       string    `json:"mood_trend"`        // improving/declining/stable
	SentimentTrend  string    `json:"sentiment_trend"`   // positive/negative/neutral
	RecentRiskLevel RiskLevel `json:"recent_risk_level"` // 窗口内出现过的最高风险
	CommonThemes    []string  `json:"common_themes,omitempty"`
}

// Preferences 推导出的回复偏好
type Preferences struct {
	ResponseLength string `json:"response_length"` // short/medium/long
}
