package model

import (
	"time"
)

// JournalEntry 日记实体
type JournalEntry struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Content   string           `bson:"content" json:"content"`
	Mood      int              `bson:"mood,omitempty" json:"mood,omitempty"` // 1-10 自评心情
	Analysis  *JournalAnalysis `bson:"analysis,omitempty" json:"analysis,omitempty"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// JournalAnalysis 日记分析结果（四路并发分析聚合后的产物）
type JournalAnalysis struct {
	Sentiment        SentimentResult `bson:"sentiment" json:"sentiment"`
	Insights         []string        `bson:"insights" json:"insights"`
	Summary          string          `bson:"summary" json:"summary"`
	Risk             RiskResult      `bson:"risk" json:"risk"`
	SuggestedActions []string        `bson:"suggested_actions" json:"suggested_actions"`
	AnalyzedAt       time.Time       `bson:"analyzed_at" json:"analyzed_at"`
}

// SentimentResult 情感分析结果
type SentimentResult struct {
	Score      float64 `bson:"score" json:"score"` // -1.0 ~ 1.0
	Label      string  `bson:"label" json:"label"` // negative/neutral/positive
	Confidence float64 `bson:"confidence" json:"confidence"`
	Fallback   bool    `bson:"fallback,omitempty" json:"fallback,omitempty"` // 降级为关键词启发式
}

// RiskResult 风险评估结果
type RiskResult struct {
	Level      RiskLevel `bson:"level" json:"level"`
	Factors    []string  `bson:"factors" json:"factors"`
	Confidence float64   `bson:"confidence" json:"confidence"`
}
