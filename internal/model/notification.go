package model

import (
	"time"
)

// CrisisAlert 危机告警记录（发给每个管理员一份）
type CrisisAlert struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	RecipientID     string    `bson:"recipient_id" json:"recipient_id"` // 管理员用户ID
	AffectedUserID  string    `bson:"affected_user_id" json:"affected_user_id"`
	RiskLevel       RiskLevel `bson:"risk_level" json:"risk_level"`
	MatchedKeywords []string  `bson:"matched_keywords,omitempty" json:"matched_keywords,omitempty"`
	TextPreview     string    `bson:"text_preview,omitempty" json:"text_preview,omitempty"` // 截断后的原文预览
	Read            bool      `bson:"read" json:"read"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
