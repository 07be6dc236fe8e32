package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"zenly/internal/ai"
	"zenly/internal/model"
	"zenly/internal/pkg/journaltools"
)

// JournalService 日记分析服务
// 四路独立分析并发执行，settle-all 汇合：每路的成败独立落袋，
// 失败的一路用确定性降级结果顶上，整个操作不会因单路失败而失败
type JournalService struct {
	gen      TextGenerator
	journals JournalStore
}

// NewJournalService 创建日记分析服务
func NewJournalService(gen TextGenerator, journals JournalStore) *JournalService {
	return &JournalService{
		gen:      gen,
		journals: journals,
	}
}

// AnalyzeJournal 分析日记
// 业务流程: 1. 取日记 -> 2. 四路并发分析 -> 3. 聚合 + 建议规则表 -> 4. 写回分析结果
func (s *JournalService) AnalyzeJournal(ctx context.Context, journalID string) (*model.JournalAnalysis, error) {
	logger := log.With().Str("journal_id", journalID).Logger()

	// 1. 取日记（不存在时直接拒绝）
	entry, err := s.journals.FindByID(ctx, journalID)
	if err != nil {
		return nil, err
	}

	// 2. 四路并发分析，settle-all 汇合
	start := time.Now()
	analysis := s.runAnalyses(ctx, entry.Content)

	// 3. 建议规则表（危机相关建议优先，最多 3 条）
	analysis.SuggestedActions = suggestActions(analysis)
	analysis.AnalyzedAt = time.Now()

	// 4. 写回；失败只告警，分析结果照常返回
	if err := s.journals.SaveAnalysis(ctx, journalID, analysis); err != nil {
		logger.Warn().Err(err).Msg("failed to persist journal analysis")
	}

	logger.Info().
		Float64("sentiment", analysis.Sentiment.Score).
		Str("risk_level", analysis.Risk.Level.String()).
		Dur("duration", time.Since(start)).
		Msg("journal analyzed")

	return analysis, nil
}

// runAnalyses 四路并发 + settle-all
// 每路先写入降级结果，成功后覆盖；等待屏障在四路全部落定后才退出
func (s *JournalService) runAnalyses(ctx context.Context, content string) *model.JournalAnalysis {
	analysis := &model.JournalAnalysis{}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		analysis.Sentiment = s.analyzeSentiment(ctx, content)
	}()
	go func() {
		defer wg.Done()
		analysis.Insights = s.generateInsights(ctx, content)
	}()
	go func() {
		defer wg.Done()
		analysis.Summary = s.summarize(ctx, content)
	}()
	go func() {
		defer wg.Done()
		analysis.Risk = s.assessRisk(ctx, content)
	}()

	wg.Wait()
	return analysis
}

// sentimentPrompt 情感分析提示词（要求 JSON 输出）
const sentimentPrompt = `Analyze the emotional sentiment of this student journal entry. Reply with JSON only: {"score": <-1.0 to 1.0>, "label": "negative|neutral|positive", "confidence": <0.0 to 1.0>}

Journal entry:
%s`

// analyzeSentiment 情感分析；失败降级为关键词计数启发式
func (s *JournalService) analyzeSentiment(ctx context.Context, content string) model.SentimentResult {
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:      fmt.Sprintf(sentimentPrompt, content),
		MaxTokens:   64,
		Temperature: floatPtr(0),
	})
	if err == nil {
		var parsed model.SentimentResult
		if jsonErr := json.Unmarshal([]byte(extractJSON(result.Content)), &parsed); jsonErr == nil &&
			parsed.Score >= -1 && parsed.Score <= 1 && parsed.Label != "" {
			return parsed
		}
	}

	log.Warn().Err(err).Msg("sentiment analysis degraded to keyword heuristic")
	score, label := journaltools.HeuristicSentiment(content)
	return model.SentimentResult{
		Score:      score,
		Label:      label,
		Confidence: 0.3,
		Fallback:   true,
	}
}

// insightsPrompt 洞察提示词
const insightsPrompt = `Read this student journal entry and offer up to 3 short, supportive insights about patterns or feelings you notice. One insight per line, no numbering.

Journal entry:
%s`

// fallbackInsights AI 不可用时的通用洞察
var fallbackInsights = []string{
	"Writing regularly about your day helps you notice patterns in how you feel.",
	"Naming an emotion is often the first step to understanding it.",
}

// generateInsights 生成洞察；失败降级为通用文案
func (s *JournalService) generateInsights(ctx context.Context, content string) []string {
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:    fmt.Sprintf(insightsPrompt, content),
		MaxTokens: 256,
	})
	if err != nil {
		log.Warn().Err(err).Msg("insight generation degraded to generic insights")
		return append([]string(nil), fallbackInsights...)
	}

	var insights []string
	for _, line := range strings.Split(result.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line != "" {
			insights = append(insights, line)
		}
		if len(insights) == 3 {
			break
		}
	}
	if len(insights) == 0 {
		return append([]string(nil), fallbackInsights...)
	}
	return insights
}

// summaryPrompt 摘要提示词
const summaryPrompt = `Summarize this student journal entry in one or two sentences, in a warm and neutral tone.

Journal entry:
%s`

// summarize 生成摘要；失败降级为前 100 字符
func (s *JournalService) summarize(ctx context.Context, content string) string {
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:    fmt.Sprintf(summaryPrompt, content),
		MaxTokens: 128,
	})
	if err != nil || strings.TrimSpace(result.Content) == "" {
		log.Warn().Err(err).Msg("summary degraded to content prefix")
		return journaltools.Truncate(content, 100)
	}
	return strings.TrimSpace(result.Content)
}

// riskPrompt 风险评估提示词（要求 JSON 输出）
const riskPrompt = `Assess the mental health risk level in this student journal entry. Reply with JSON only: {"level": "low|medium|high", "factors": ["..."], "confidence": <0.0 to 1.0>}

Journal entry:
%s`

// assessRisk 风险评估；失败降级为 {low, [], 0}
func (s *JournalService) assessRisk(ctx context.Context, content string) model.RiskResult {
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:      fmt.Sprintf(riskPrompt, content),
		MaxTokens:   128,
		Temperature: floatPtr(0),
	})
	if err == nil {
		var parsed model.RiskResult
		if jsonErr := json.Unmarshal([]byte(extractJSON(result.Content)), &parsed); jsonErr == nil && parsed.Level.IsValid() {
			if parsed.Factors == nil {
				parsed.Factors = []string{}
			}
			return parsed
		}
	}

	log.Warn().Err(err).Msg("risk assessment degraded to low")
	return model.RiskResult{
		Level:      model.RiskLow,
		Factors:    []string{},
		Confidence: 0,
	}
}

// suggestActions 建议规则表
// risk=high 的建议置顶；最多返回 3 条
func suggestActions(analysis *model.JournalAnalysis) []string {
	var crisis, regular []string

	switch analysis.Risk.Level {
	case model.RiskHigh:
		crisis = append(crisis,
			"Please call or text the 988 Suicide & Crisis Lifeline",
			"Book an immediate session with a campus counselor",
		)
	case model.RiskMedium:
		regular = append(regular, "Schedule a check-in with a campus counselor this week")
	}

	switch {
	case analysis.Sentiment.Score < -0.5:
		regular = append(regular,
			"Try a brief breathing or grounding exercise when things feel heavy",
			"Reach out to someone you trust about how today went",
		)
	case analysis.Sentiment.Score > 0.5:
		regular = append(regular,
			"Note down what made today good so you can come back to it",
		)
	}

	if len(crisis) == 0 && len(regular) == 0 {
		regular = append(regular, "Keep up the journaling habit, it builds self-awareness over time")
	}

	actions := append(crisis, regular...)
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

// extractJSON 从模型输出中截取第一个 JSON 对象（容忍围栏代码块等噪音）
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
