package service

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"zenly/internal/ai"
	"zenly/internal/model"
)

// routeJournalPrompts 按提示词内容路由四路分析的假响应
func routeJournalPrompts(sentiment, insights, summary, risk string) func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
	return func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
		switch {
		case strings.Contains(req.Prompt, "emotional sentiment"):
			return &ai.GenerateResult{Content: sentiment}, nil
		case strings.Contains(req.Prompt, "supportive insights"):
			return &ai.GenerateResult{Content: insights}, nil
		case strings.Contains(req.Prompt, "Summarize"):
			return &ai.GenerateResult{Content: summary}, nil
		default:
			return &ai.GenerateResult{Content: risk}, nil
		}
	}
}

// TestAnalyzeJournal 测试四路并发日记分析
func TestAnalyzeJournal(t *testing.T) {
	Convey("日记分析测试", t, func() {
		ctx := context.Background()
		entry := &model.JournalEntry{
			ID:      "journal-1",
			UserID:  "user-1",
			Content: "Exams are coming and I feel stressed, but my roommate helped me study tonight.",
		}

		Convey("四路全部成功时聚合各路结果", func() {
			gen := &fakeGen{generateFn: routeJournalPrompts(
				`{"score": -0.4, "label": "negative", "confidence": 0.9}`,
				"You reached out for support\nStress peaks around exams",
				"A stressful evening eased by a roommate's help.",
				`{"level": "low", "factors": ["exam stress"], "confidence": 0.8}`,
			)}
			journals := newFakeJournalStore(entry)
			svc := NewJournalService(gen, journals)

			analysis, err := svc.AnalyzeJournal(ctx, "journal-1")

			So(err, ShouldBeNil)
			So(analysis.Sentiment.Score, ShouldEqual, -0.4)
			So(analysis.Sentiment.Fallback, ShouldBeFalse)
			So(analysis.Insights, ShouldHaveLength, 2)
			So(analysis.Summary, ShouldEqual, "A stressful evening eased by a roommate's help.")
			So(analysis.Risk.Level, ShouldEqual, model.RiskLow)
			So(analysis.Risk.Factors, ShouldResemble, []string{"exam stress"})
			So(analysis.SuggestedActions, ShouldNotBeEmpty)
			So(len(analysis.SuggestedActions), ShouldBeLessThanOrEqualTo, 3)
			So(analysis.AnalyzedAt.IsZero(), ShouldBeFalse)
			// 结果已写回
			So(journals.saved["journal-1"], ShouldEqual, analysis)
		})

		Convey("四路全部失败时每路独立降级，操作不报错", func() {
			gen := &fakeGen{} // 所有调用失败
			journals := newFakeJournalStore(entry)
			svc := NewJournalService(gen, journals)

			analysis, err := svc.AnalyzeJournal(ctx, "journal-1")

			So(err, ShouldBeNil)
			So(analysis.Sentiment.Fallback, ShouldBeTrue)
			So(analysis.Sentiment.Label, ShouldBeIn, "negative", "neutral", "positive")
			So(analysis.Insights, ShouldResemble, fallbackInsights)
			So(analysis.Summary, ShouldStartWith, "Exams are coming")
			So(analysis.Risk.Level, ShouldEqual, model.RiskLow)
			So(analysis.Risk.Factors, ShouldBeEmpty)
			So(analysis.SuggestedActions, ShouldNotBeEmpty)
		})

		Convey("模型输出包裹围栏代码块时仍能解析", func() {
			gen := &fakeGen{generateFn: routeJournalPrompts(
				"```json\n{\"score\": 0.6, \"label\": \"positive\", \"confidence\": 0.7}\n```",
				"Good day",
				"A good day.",
				"```json\n{\"level\": \"medium\", \"factors\": [], \"confidence\": 0.5}\n```",
			)}
			svc := NewJournalService(gen, newFakeJournalStore(entry))

			analysis, err := svc.AnalyzeJournal(ctx, "journal-1")
			So(err, ShouldBeNil)
			So(analysis.Sentiment.Score, ShouldEqual, 0.6)
			So(analysis.Risk.Level, ShouldEqual, model.RiskMedium)
		})

		Convey("风险为 high 时危机相关建议置顶", func() {
			gen := &fakeGen{generateFn: routeJournalPrompts(
				`{"score": -0.9, "label": "negative", "confidence": 0.9}`,
				"Insight one",
				"Summary.",
				`{"level": "high", "factors": ["self-harm ideation"], "confidence": 0.9}`,
			)}
			svc := NewJournalService(gen, newFakeJournalStore(entry))

			analysis, err := svc.AnalyzeJournal(ctx, "journal-1")
			So(err, ShouldBeNil)
			So(analysis.SuggestedActions[0], ShouldContainSubstring, "988")
			So(len(analysis.SuggestedActions), ShouldEqual, 3)
		})

		Convey("日记不存在时直接拒绝", func() {
			svc := NewJournalService(&fakeGen{}, newFakeJournalStore())
			_, err := svc.AnalyzeJournal(ctx, "missing")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not found")
		})

		Convey("写回失败被吞掉，分析结果照常返回", func() {
			journals := newFakeJournalStore(entry)
			journals.saveErr = errUnavailable
			svc := NewJournalService(&fakeGen{}, journals)

			analysis, err := svc.AnalyzeJournal(ctx, "journal-1")
			So(err, ShouldBeNil)
			So(analysis, ShouldNotBeNil)
		})
	})
}

// TestSuggestActions 测试建议规则表
func TestSuggestActions(t *testing.T) {
	Convey("建议规则表测试", t, func() {
		Convey("无规则命中时给默认建议", func() {
			actions := suggestActions(&model.JournalAnalysis{
				Sentiment: model.SentimentResult{Score: 0},
				Risk:      model.RiskResult{Level: model.RiskLow},
			})
			So(actions, ShouldHaveLength, 1)
		})

		Convey("强负面情感追加安抚建议", func() {
			actions := suggestActions(&model.JournalAnalysis{
				Sentiment: model.SentimentResult{Score: -0.8},
				Risk:      model.RiskResult{Level: model.RiskLow},
			})
			So(len(actions), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("最多返回 3 条且危机建议在前", func() {
			actions := suggestActions(&model.JournalAnalysis{
				Sentiment: model.SentimentResult{Score: -0.8},
				Risk:      model.RiskResult{Level: model.RiskHigh},
			})
			So(actions, ShouldHaveLength, 3)
			So(actions[0], ShouldContainSubstring, "988")
		})
	})
}
