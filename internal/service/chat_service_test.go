package service

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"zenly/internal/ai"
	"zenly/internal/model"
)

func newChatFixture(gen *fakeGen) (*ChatService, *fakeConvStore, *fakeMsgStore, *fakeAlertSink) {
	conv := &model.Conversation{
		ID:     "conv-1",
		UserID: "user-1",
		Type:   model.ConversationGeneralChat,
		Status: model.ConversationActive,
	}
	convs := newFakeConvStore(conv)
	msgs := newFakeMsgStore()
	alerts := &fakeAlertSink{}
	users := &fakeUserStore{users: map[string]*model.User{}, admins: []*model.User{{ID: "admin-1"}}}

	crisis := NewCrisisService(gen, users, alerts, crisisTestConfig())
	ctxSvc := NewContextService(users, newFakeJournalStore(), msgs, nil, contextTestConfig())
	svc := NewChatService(gen, convs, msgs, crisis, ctxSvc, nil)
	return svc, convs, msgs, alerts
}

const goodReply = "That sounds really tough, and I hear you. Thank you for sharing it with me."

// TestGenerateResponse 测试同步对话编排
func TestGenerateResponse(t *testing.T) {
	Convey("同步对话测试", t, func() {
		ctx := context.Background()

		Convey("空消息直接拒绝", func() {
			svc, _, _, _ := newChatFixture(&fakeGen{})
			_, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "   ")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("会话不存在或归属不符时按不存在处理", func() {
			svc, _, _, _ := newChatFixture(&fakeGen{})

			_, err := svc.GenerateResponse(ctx, "missing", "user-1", "hello")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)

			_, err = svc.GenerateResponse(ctx, "conv-1", "someone-else", "hello")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("正常生成且通过质量闸门", func() {
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{
					Content: goodReply,
					Usage:   &model.TokenUsage{TotalTokens: 42},
				}, nil
			}}
			svc, convs, msgs, _ := newChatFixture(gen)

			msg, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "today was hard")

			So(err, ShouldBeNil)
			So(msg.Role, ShouldEqual, model.RoleAssistant)
			So(msg.Content, ShouldEqual, goodReply)
			So(msg.Metadata.IsFallback, ShouldBeFalse)
			So(msg.Metadata.TokensUsed, ShouldEqual, 42)
			So(msg.Metadata.Model, ShouldEqual, "test-model")
			// 用户消息 + 助手消息各计一次
			So(convs.countDeltas, ShouldResemble, []int{2})
			So(msgs.created, ShouldHaveLength, 2)
		})

		Convey("质量闸门不过关时换兜底文案而非报错", func() {
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{Content: "ok"}, nil
			}}
			svc, _, _, _ := newChatFixture(gen)

			msg, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "today was hard")
			So(err, ShouldBeNil)
			So(msg.Metadata.IsFallback, ShouldBeTrue)
			So(msg.Content, ShouldEqual, fallbackReply(model.ConversationGeneralChat))
		})

		Convey("生成含错误痕迹时同样兜底", func() {
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{Content: "I understand, but an internal server error occurred somewhere"}, nil
			}}
			svc, _, _, _ := newChatFixture(gen)

			msg, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "today was hard")
			So(err, ShouldBeNil)
			So(msg.Metadata.IsFallback, ShouldBeTrue)
		})

		Convey("重试耗尽后对外暴露统一生成失败错误", func() {
			svc, _, _, _ := newChatFixture(&fakeGen{}) // 所有生成调用失败
			_, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "today was hard")
			So(errors.Is(err, model.ErrGenerationFailed), ShouldBeTrue)
		})

		Convey("危机消息完全抢占正常生成", func() {
			gen := &fakeGen{} // AI 全挂，危机路径仍必须成功
			svc, convs, msgs, alerts := newChatFixture(gen)

			msg, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "I want to kill myself")

			So(err, ShouldBeNil)
			So(msg.Metadata.IsCrisis, ShouldBeTrue)
			So(msg.Metadata.RiskLevel, ShouldEqual, model.RiskHigh)
			// 固定开场 + 逐字资源包
			So(msg.Content, ShouldContainSubstring, crisisReplyTemplate)
			So(msg.Content, ShouldContainSubstring, "988")
			// 会话单向迁移到 crisis，管理员收到告警
			So(convs.markCrisisWith, ShouldResemble, []model.RiskLevel{model.RiskHigh})
			So(alerts.count(), ShouldEqual, 1)
			So(msgs.created, ShouldHaveLength, 2)
		})

		Convey("危机开场 AI 可用时替换固定模板", func() {
			opening := "I'm so glad you told me, and I hear you. This sounds incredibly painful."
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{Content: opening}, nil
			}}
			svc, _, _, _ := newChatFixture(gen)

			msg, err := svc.GenerateResponse(ctx, "conv-1", "user-1", "I want to kill myself")
			So(err, ShouldBeNil)
			So(msg.Content, ShouldStartWith, opening)
			So(msg.Content, ShouldContainSubstring, "988")
		})
	})
}

// TestQualityGate 测试回复质量启发式
func TestQualityGate(t *testing.T) {
	Convey("质量闸门测试", t, func() {
		Convey("过短的回复不过关", func() {
			So(passesQualityGate("ok"), ShouldBeFalse)
			So(passesQualityGate("   "), ShouldBeFalse)
		})

		Convey("含错误痕迹的回复不过关", func() {
			So(passesQualityGate("As an AI, I cannot help with your feelings today"), ShouldBeFalse)
			So(passesQualityGate("I understand but exception was thrown here"), ShouldBeFalse)
		})

		Convey("缺共情用语的回复不过关", func() {
			So(passesQualityGate("The library opens at nine in the morning daily."), ShouldBeFalse)
		})

		Convey("正常共情回复过关", func() {
			So(passesQualityGate(goodReply), ShouldBeTrue)
		})
	})
}

// TestSystemPromptFor 测试提示词变体选择
func TestSystemPromptFor(t *testing.T) {
	Convey("提示词选择测试", t, func() {
		reflective := systemPromptFor(model.ConversationJournalReflection, "short")
		supportive := systemPromptFor(model.ConversationGeneralChat, "long")

		So(reflective, ShouldContainSubstring, "reflection companion")
		So(reflective, ShouldContainSubstring, "1-2 sentences")
		So(supportive, ShouldContainSubstring, "supportive listener")
		So(supportive, ShouldNotEqual, reflective)
	})
}
