// Package crisistools 危机文本的确定性工具层：关键词匹配与援助资源。
// 不依赖任何外部服务，保证关键词层永远可用。
package crisistools

import (
	"strings"

	"zenly/internal/model"
)

// highRiskKeywords 高风险关键词（自伤、自杀意念、伤害他人）
var highRiskKeywords = []string{
	"kill myself",
	"end my life",
	"take my own life",
	"want to die",
	"wish i was dead",
	"better off dead",
	"suicide",
	"suicidal",
	"end it all",
	"hurt myself",
	"harm myself",
	"self harm",
	"self-harm",
	"cut myself",
	"no reason to live",
	"kill him",
	"kill her",
	"kill them",
	"hurt someone",
}

// mediumRiskKeywords 中风险关键词（仅在没有高风险命中时扫描）
var mediumRiskKeywords = []string{
	"hopeless",
	"worthless",
	"can't go on",
	"cant go on",
	"can't take it anymore",
	"cant take it anymore",
	"give up on everything",
	"no point anymore",
	"hate myself",
	"nobody cares",
	"so alone",
	"completely alone",
	"empty inside",
	"trapped",
	"burden to everyone",
}

// MatchResult 关键词层扫描结果
type MatchResult struct {
	RiskLevel model.RiskLevel
	Matched   []string
}

// Scan 对文本做关键词分级
// 先扫高风险集合；任一命中即定级 high，且不再扫描中风险集合。
// 两个集合都未命中时返回 low。
func Scan(text string) MatchResult {
	lowered := strings.ToLower(text)

	var matched []string
	for _, kw := range highRiskKeywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return MatchResult{RiskLevel: model.RiskHigh, Matched: matched}
	}

	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return MatchResult{RiskLevel: model.RiskMedium, Matched: matched}
	}

	return MatchResult{RiskLevel: model.RiskLow}
}

// ContainsHighRisk 文本是否包含高风险关键词（流式复扫用的快速路径）
func ContainsHighRisk(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range highRiskKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
