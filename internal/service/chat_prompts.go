package service

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"zenly/internal/model"
)

// 提示词与质量闸门：会话类型决定提示词变体，生成结果过不了
// 启发式检查时用固定兜底文案顶替（这是质量闸门，不是错误）

// reflectiveSystemPrompt 日记反思会话的 system 提示词
const reflectiveSystemPrompt = `You are a gentle reflection companion for a university student's journaling practice. Help the student explore what they wrote, ask at most one open question, and never give medical advice. Keep responses %s.`

// supportiveSystemPrompt 普通聊天会话的 system 提示词
const supportiveSystemPrompt = `You are a warm, supportive listener for a university student. Validate feelings, suggest small concrete next steps, and never give medical advice. Keep responses %s.`

// systemPromptFor 按会话类型和偏好长度选择 system 提示词
func systemPromptFor(convType model.ConversationType, responseLength string) string {
	length := "to a medium length (3-5 sentences)"
	switch responseLength {
	case "short":
		length = "short (1-2 sentences)"
	case "long":
		length = "detailed but under 10 sentences"
	}

	if convType == model.ConversationJournalReflection {
		return fmt.Sprintf(reflectiveSystemPrompt, length)
	}
	return fmt.Sprintf(supportiveSystemPrompt, length)
}

// buildChatMessages 组装生成用的消息列表：上下文摘要 + 历史 + 本次用户消息
func buildChatMessages(pc *model.PromptContext, userMessage string) []*schema.Message {
	var messages []*schema.Message

	if summary := contextSummary(pc); summary != "" {
		messages = append(messages, schema.SystemMessage(summary))
	}

	for _, h := range pc.History {
		switch h.Role {
		case model.RoleUser:
			messages = append(messages, schema.UserMessage(h.Content))
		case model.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(h.Content, nil))
		}
	}

	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}

// contextSummary 把上下文窗口压成一段给模型的背景描述
func contextSummary(pc *model.PromptContext) string {
	if pc == nil || pc.Minimal {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Background about the student (do not repeat this verbatim):\n")

	if pc.Profile != nil && pc.Profile.Nickname != "" {
		fmt.Fprintf(&sb, "- Goes by %s", pc.Profile.Nickname)
		if pc.Profile.Year != "" {
			fmt.Fprintf(&sb, ", %s", pc.Profile.Year)
		}
		sb.WriteString("\n")
	}

	if pc.Patterns != nil {
		fmt.Fprintf(&sb, "- Recent mood trend: %s; sentiment trend: %s\n",
			pc.Patterns.MoodTrend, pc.Patterns.SentimentTrend)
		if len(pc.Patterns.CommonThemes) > 0 {
			fmt.Fprintf(&sb, "- Recurring journal themes: %s\n", strings.Join(pc.Patterns.CommonThemes, ", "))
		}
	}

	for i, j := range pc.RecentJournals {
		if i >= 2 {
			break
		}
		fmt.Fprintf(&sb, "- Recent journal excerpt: %q\n", j.Content)
	}

	return sb.String()
}

// empathyTerms 质量闸门要求的共情词表（至少命中一个）
var empathyTerms = []string{
	"understand", "hear you", "sounds", "feel", "feeling", "valid",
	"makes sense", "thank you for sharing", "not alone", "tough", "hard",
}

// errorSentinels 不应出现在回复里的错误痕迹
var errorSentinels = []string{
	"as an ai",
	"i am an ai",
	"error",
	"exception",
	"undefined",
	"internal server",
	"[object",
}

// passesQualityGate 回复质量启发式：最小长度 + 无错误痕迹 + 含共情用语
func passesQualityGate(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 20 {
		return false
	}

	lowered := strings.ToLower(trimmed)
	for _, sentinel := range errorSentinels {
		if strings.Contains(lowered, sentinel) {
			return false
		}
	}

	for _, term := range empathyTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// fallbackReply 质量闸门未通过时的固定兜底文案
func fallbackReply(convType model.ConversationType) string {
	if convType == model.ConversationJournalReflection {
		return "Thank you for sharing this entry. I hear that a lot is going on for you right now. What stood out to you most as you were writing it?"
	}
	return "Thank you for telling me this. What you're feeling is valid, and I'm here to listen. Would you like to tell me a bit more about what's been on your mind?"
}

// crisisReplyTemplate 危机路径的固定共情开场（AI 生成失败时直接使用）
const crisisReplyTemplate = "I'm really glad you told me this, and I'm concerned about how much pain you're in right now. You don't have to carry this alone."

// crisisReplyPrompt 危机路径的 AI 共情开场提示词
const crisisReplyPrompt = `A university student has just shared something indicating emotional crisis. Write 2-3 sentences acknowledging their pain with warmth and without judgement. Do not give advice, do not mention hotlines (they are shown separately).

What they shared:
%s`

// formatResources 将资源包逐字拼接到回复末尾
func formatResources(bundle *model.ResourceBundle) string {
	if bundle == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n---\n")
	if bundle.UrgentMessage != "" {
		sb.WriteString(bundle.UrgentMessage)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "National crisis line: %s (%s)\n", bundle.Hotlines.National.Number, bundle.Hotlines.National.Available)
	fmt.Fprintf(&sb, "%s\n", bundle.Hotlines.Campus.Info)
	for _, s := range bundle.Suggestions {
		fmt.Fprintf(&sb, "- %s\n", s)
	}
	return sb.String()
}
