package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"zenly/internal/config"
	"zenly/internal/model"
	"zenly/internal/pkg/cache"
	"zenly/internal/pkg/journaltools"
)

// ContextService 上下文构建服务
// 为一次生成请求组装有 token 预算约束的上下文窗口；
// 任一数据源加载失败都降级为空，所有数据源都失败时返回最小上下文
type ContextService struct {
	users    UserStore
	journals JournalStore
	messages MessageStore
	cache    ContextCache // 可选
	themes   *journaltools.ThemeExtractor
	cfg      config.ContextConfig
}

// NewContextService 创建上下文构建服务
func NewContextService(users UserStore, journals JournalStore, messages MessageStore, contextCache ContextCache, cfg config.ContextConfig) *ContextService {
	return &ContextService{
		users:    users,
		journals: journals,
		messages: messages,
		cache:    contextCache,
		themes:   journaltools.NewThemeExtractor(),
		cfg:      cfg,
	}
}

// Build 构建用户维度的基础上下文（画像 + 最近日记 + 模式）
func (s *ContextService) Build(ctx context.Context, userID string) *model.PromptContext {
	// 可选缓存：命中直接返回
	if s.cache != nil {
		var cached model.PromptContext
		if err := s.cache.Get(ctx, cache.ContextCacheKey(userID), &cached); err == nil {
			return &cached
		}
	}

	pc := &model.PromptContext{
		Preferences: model.Preferences{ResponseLength: "medium"},
	}

	profileOK := s.loadProfile(ctx, userID, pc)
	journalsOK := s.loadJournals(ctx, userID, pc)

	if len(pc.RecentJournals) > 0 {
		pc.Patterns = s.derivePatterns(pc.RecentJournals)
	}

	// 全部数据源失效时标记最小上下文
	if !profileOK && !journalsOK {
		pc.Minimal = true
	}

	s.enforceBudget(pc)

	if s.cache != nil && !pc.Minimal {
		if err := s.cache.Set(ctx, cache.ContextCacheKey(userID), pc, s.cfg.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache context")
		}
	}

	return pc
}

// BuildForConversation 构建会话维度的上下文（基础上下文 + 会话历史）
func (s *ContextService) BuildForConversation(ctx context.Context, conv *model.Conversation) *model.PromptContext {
	pc := s.Build(ctx, conv.UserID)

	// 历史单独加载，不走缓存
	s.loadHistory(ctx, conv.ID, pc)
	s.enforceBudget(pc)

	return pc
}

// loadProfile 加载用户画像；失败降级为空
func (s *ContextService) loadProfile(ctx context.Context, userID string, pc *model.PromptContext) bool {
	if s.users == nil {
		return false
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("context: profile unavailable, degrading")
		return false
	}
	if user.Profile != nil {
		pc.Profile = &model.ProfileSnippet{
			Nickname: user.Profile.Nickname,
			Year:     user.Profile.Year,
			Campus:   user.Profile.Campus,
			Pronouns: user.Profile.Pronouns,
		}
		if user.Profile.PrefLength != "" {
			pc.Preferences.ResponseLength = user.Profile.PrefLength
		}
	}
	return true
}

// loadJournals 加载窗口内最近日记；失败降级为空
func (s *ContextService) loadJournals(ctx context.Context, userID string, pc *model.PromptContext) bool {
	if s.journals == nil {
		return false
	}
	since := timeNow().Add(-s.cfg.JournalWindow)
	entries, err := s.journals.ListRecent(ctx, userID, since, int64(s.cfg.JournalLimit))
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("context: journals unavailable, degrading")
		return false
	}

	for _, entry := range entries {
		snippet := model.JournalSnippet{
			Content:   journaltools.Truncate(entry.Content, s.cfg.JournalChars),
			Mood:      entry.Mood,
			CreatedAt: entry.CreatedAt,
		}
		if entry.Analysis != nil {
			snippet.Sentiment = entry.Analysis.Sentiment.Score
			snippet.RiskLevel = entry.Analysis.Risk.Level
		}
		pc.RecentJournals = append(pc.RecentJournals, snippet)
	}
	return true
}

// loadHistory 加载会话历史（取最近 N 条后反转为时间正序）；失败降级为空
func (s *ContextService) loadHistory(ctx context.Context, conversationID string, pc *model.PromptContext) {
	if s.messages == nil {
		return
	}
	msgs, err := s.messages.ListRecent(ctx, conversationID, int64(s.cfg.HistoryLimit))
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("context: history unavailable, degrading")
		return
	}

	// ListRecent 返回倒序，反转成时间正序
	for i := len(msgs) - 1; i >= 0; i-- {
		pc.History = append(pc.History, model.HistoryMessage{
			Role:    msgs[i].Role,
			Content: journaltools.Truncate(msgs[i].Content, s.cfg.HistoryChars),
		})
	}
}

// derivePatterns 从日记窗口推导行为模式（纯计算）
// 日记按 created_at 倒序排列，[0] 是最新一条
func (s *ContextService) derivePatterns(journals []model.JournalSnippet) *model.Patterns {
	patterns := &model.Patterns{
		MoodTrend:       "stable",
		SentimentTrend:  "neutral",
		RecentRiskLevel: model.RiskLow,
	}

	// 心情趋势：最近 2 条均值 vs 整体均值
	var moodSum, moodCount float64
	for _, j := range journals {
		if j.Mood > 0 {
			moodSum += float64(j.Mood)
			moodCount++
		}
	}
	if moodCount >= 2 {
		overall := moodSum / moodCount
		var recentSum, recentCount float64
		for i := 0; i < len(journals) && recentCount < 2; i++ {
			if journals[i].Mood > 0 {
				recentSum += float64(journals[i].Mood)
				recentCount++
			}
		}
		if recentCount > 0 {
			recent := recentSum / recentCount
			switch {
			case recent > overall+0.5:
				patterns.MoodTrend = "improving"
			case recent < overall-0.5:
				patterns.MoodTrend = "declining"
			}
		}
	}

	// 情感趋势：平均分按 ±0.2 阈值分级
	var sentSum float64
	for _, j := range journals {
		sentSum += j.Sentiment
	}
	avgSent := sentSum / float64(len(journals))
	switch {
	case avgSent > 0.2:
		patterns.SentimentTrend = "positive"
	case avgSent < -0.2:
		patterns.SentimentTrend = "negative"
	}

	// 风险趋势：窗口内出现过的最高等级
	for _, j := range journals {
		patterns.RecentRiskLevel = model.MaxRiskLevel(patterns.RecentRiskLevel, j.RiskLevel)
	}

	// 共同主题：固定词表对拼接文本做交集
	var sb []byte
	for _, j := range journals {
		sb = append(sb, j.Content...)
		sb = append(sb, ' ')
	}
	patterns.CommonThemes = s.themes.Extract(string(sb))

	return patterns
}

// enforceBudget token 预算裁剪
// 优先级：保当前会话/日记 -> 模式 -> 老日记缩到 2 条减半长度 -> 历史缩到 5 条减半长度 ->
// 历史只留最后 1 条（哪怕单条仍超预算也至少保留 1 条）
func (s *ContextService) enforceBudget(pc *model.PromptContext) {
	if s.estimate(pc) <= s.cfg.MaxTokens {
		return
	}

	// 1. 丢弃模式
	pc.Patterns = nil
	if s.estimate(pc) <= s.cfg.MaxTokens {
		return
	}

	// 2. 老日记缩到 2 条、长度减半
	if len(pc.RecentJournals) > 2 {
		pc.RecentJournals = pc.RecentJournals[:2]
	}
	for i := range pc.RecentJournals {
		pc.RecentJournals[i].Content = journaltools.Truncate(pc.RecentJournals[i].Content, s.cfg.JournalChars/2)
	}
	if s.estimate(pc) <= s.cfg.MaxTokens {
		return
	}

	// 3. 历史缩到最近 5 条、长度减半
	if len(pc.History) > 5 {
		pc.History = pc.History[len(pc.History)-5:]
	}
	for i := range pc.History {
		pc.History[i].Content = journaltools.Truncate(pc.History[i].Content, s.cfg.HistoryChars/2)
	}
	if s.estimate(pc) <= s.cfg.MaxTokens {
		return
	}

	// 4. 日记全部丢弃，历史只保留最后一条
	pc.RecentJournals = nil
	if len(pc.History) > 1 {
		pc.History = pc.History[len(pc.History)-1:]
	}
}

// estimate 估算上下文 token 数（字符数 / 固定比例）
func (s *ContextService) estimate(pc *model.PromptContext) int {
	var chars int
	if pc.Profile != nil {
		chars += len(pc.Profile.Nickname) + len(pc.Profile.Year) + len(pc.Profile.Campus) + len(pc.Profile.Pronouns)
	}
	for _, j := range pc.RecentJournals {
		chars += len(j.Content) + 32 // 元数据的固定开销
	}
	for _, h := range pc.History {
		chars += len(h.Content) + 16
	}
	if pc.Patterns != nil {
		chars += 64
		for _, t := range pc.Patterns.CommonThemes {
			chars += len(t)
		}
	}
	return chars / s.cfg.CharsPerToken
}
