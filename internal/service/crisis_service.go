package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"zenly/internal/ai"
	"zenly/internal/config"
	"zenly/internal/model"
	"zenly/internal/pkg/crisistools"
	"zenly/internal/pkg/id"
	"zenly/internal/pkg/journaltools"
)

// CrisisService 危机检测服务
// 两层检测：确定性关键词层永远先走；AI 二次分级只能抬高等级，
// 任何 AI 层失败都降级回关键词层结果，绝不向外抛错
type CrisisService struct {
	gen    TextGenerator
	users  UserStore
	alerts AlertSink
	cfg    config.CrisisConfig
}

// NewCrisisService 创建危机检测服务
func NewCrisisService(gen TextGenerator, users UserStore, alerts AlertSink, cfg config.CrisisConfig) *CrisisService {
	return &CrisisService{
		gen:    gen,
		users:  users,
		alerts: alerts,
		cfg:    cfg,
	}
}

// crisisClassifyPrompt AI 二次分级的提示词
const crisisClassifyPrompt = `You are a mental health risk triage assistant. Classify the risk of self-harm or harm to others in the following student message as exactly one word: high, medium, or low.

Message:
%s

Answer with one word only.`

// Assess 评估文本危机等级
// 业务流程: 1. 关键词分级 -> 2. AI 二次分级（仅命中时） -> 3. 组装资源包 -> 4. 管理员告警 -> 5. 记录危机事件
func (s *CrisisService) Assess(ctx context.Context, text, userID string) *model.CrisisAssessment {
	logger := log.With().Str("user_id", userID).Logger()

	// 1. 关键词层（确定性，永远可用）
	match := crisistools.Scan(text)
	assessment := &model.CrisisAssessment{
		IsCrisis:        match.RiskLevel != model.RiskLow,
		RiskLevel:       match.RiskLevel,
		MatchedKeywords: match.Matched,
	}

	// 2. AI 二次分级：只在关键词层命中时调用，且只升不降
	if assessment.IsCrisis && s.cfg.AIRefinement && s.gen != nil {
		aiResult := s.refineWithAI(ctx, text)
		if aiResult != nil {
			assessment.AIAssessment = aiResult
			assessment.RiskLevel = model.MaxRiskLevel(assessment.RiskLevel, aiResult.RiskLevel)
		}
	}

	// 3. 资源包按最终等级组装
	assessment.Resources = crisistools.BundleForLevel(assessment.RiskLevel)
	assessment.RequiresAdminAlert = assessment.RiskLevel == model.RiskHigh

	// 4. 管理员告警；失败只记日志，不影响评估结果
	if assessment.RequiresAdminAlert {
		s.alertAdmins(ctx, userID, text, assessment)
	}

	// 5. 危机事件日志（告警失败也要记）
	if assessment.IsCrisis {
		logger.Warn().
			Str("risk_level", assessment.RiskLevel.String()).
			Strs("matched_keywords", assessment.MatchedKeywords).
			Bool("admin_alert", assessment.RequiresAdminAlert).
			Msg("crisis detected")
	}

	return assessment
}

// refineWithAI AI 二次分级
// 模型输出不可解析或调用失败时按 medium 处理，而不是中断
func (s *CrisisService) refineWithAI(ctx context.Context, text string) *model.AIAssessment {
	result, err := s.gen.Generate(ctx, &ai.GenerateRequest{
		Prompt:      fmt.Sprintf(crisisClassifyPrompt, text),
		MaxTokens:   8,
		Temperature: floatPtr(0),
	})
	if err != nil {
		log.Warn().Err(err).Msg("crisis AI refinement failed, falling back to keyword result")
		return &model.AIAssessment{RiskLevel: model.RiskMedium}
	}

	return &model.AIAssessment{
		RiskLevel: parseRiskLevel(result.Content),
		Raw:       result.Content,
	}
}

// parseRiskLevel 从模型输出解析风险等级，解析不出时默认 medium
func parseRiskLevel(raw string) model.RiskLevel {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "high"):
		return model.RiskHigh
	case strings.Contains(lowered, "low"):
		return model.RiskLow
	default:
		return model.RiskMedium
	}
}

// alertAdmins 给所有激活管理员写入结构化告警
func (s *CrisisService) alertAdmins(ctx context.Context, userID, text string, assessment *model.CrisisAssessment) {
	if s.users == nil || s.alerts == nil {
		return
	}

	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list admins for crisis alert")
		return
	}
	if len(admins) == 0 {
		log.Warn().Msg("no active admins to receive crisis alert")
		return
	}

	preview := journaltools.Truncate(text, s.cfg.PreviewLength)
	alerts := make([]*model.CrisisAlert, 0, len(admins))
	for _, admin := range admins {
		alerts = append(alerts, &model.CrisisAlert{
			ID:              id.New(),
			RecipientID:     admin.ID,
			AffectedUserID:  userID,
			RiskLevel:       assessment.RiskLevel,
			MatchedKeywords: assessment.MatchedKeywords,
			TextPreview:     preview,
		})
	}

	if err := s.alerts.CreateMany(ctx, alerts); err != nil {
		log.Error().Err(err).Int("recipients", len(alerts)).Msg("failed to deliver crisis alerts")
		return
	}

	log.Info().Int("recipients", len(alerts)).Str("user_id", userID).Msg("crisis alerts delivered")
}

func floatPtr(f float64) *float64 {
	return &f
}
