package service

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"zenly/internal/ai"
	"zenly/internal/config"
	"zenly/internal/model"
)

func crisisTestConfig() config.CrisisConfig {
	return config.CrisisConfig{
		AIRefinement:   true,
		PreviewLength:  200,
		RescanInterval: 5,
	}
}

func adminUsers(ids ...string) *fakeUserStore {
	store := &fakeUserStore{users: make(map[string]*model.User)}
	for _, id := range ids {
		store.admins = append(store.admins, &model.User{ID: id, Role: model.RoleAdmin})
	}
	return store
}

// TestCrisisAssess 测试两层危机检测
func TestCrisisAssess(t *testing.T) {
	Convey("危机评估测试", t, func() {
		ctx := context.Background()

		Convey("高风险关键词触发 high 并给所有管理员投递告警", func() {
			gen := &fakeGen{} // AI 层失败，关键词层结果不受影响
			alerts := &fakeAlertSink{}
			svc := NewCrisisService(gen, adminUsers("admin-1", "admin-2"), alerts, crisisTestConfig())

			assessment := svc.Assess(ctx, "I want to kill myself", "user-1")

			So(assessment.IsCrisis, ShouldBeTrue)
			So(assessment.RiskLevel, ShouldEqual, model.RiskHigh)
			So(assessment.RequiresAdminAlert, ShouldBeTrue)
			So(assessment.Resources, ShouldNotBeNil)
			So(assessment.Resources.UrgentMessage, ShouldNotBeEmpty)
			So(alerts.count(), ShouldEqual, 2)
		})

		Convey("普通压力文本为 low，不调用 AI 也不告警", func() {
			gen := &fakeGen{}
			alerts := &fakeAlertSink{}
			svc := NewCrisisService(gen, adminUsers("admin-1"), alerts, crisisTestConfig())

			assessment := svc.Assess(ctx, "I'm a bit stressed about exams", "user-1")

			So(assessment.IsCrisis, ShouldBeFalse)
			So(assessment.RiskLevel, ShouldEqual, model.RiskLow)
			So(assessment.RequiresAdminAlert, ShouldBeFalse)
			So(alerts.count(), ShouldEqual, 0)
			generateCalls, _ := gen.calls()
			So(generateCalls, ShouldEqual, 0)
		})

		Convey("AI 二次分级只升不降", func() {
			Convey("AI 判 low 时保持关键词层的 medium", func() {
				gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
					return &ai.GenerateResult{Content: "low"}, nil
				}}
				svc := NewCrisisService(gen, adminUsers(), &fakeAlertSink{}, crisisTestConfig())

				assessment := svc.Assess(ctx, "everything feels hopeless", "user-1")
				So(assessment.RiskLevel, ShouldEqual, model.RiskMedium)
				So(assessment.AIAssessment.RiskLevel, ShouldEqual, model.RiskLow)
			})

			Convey("AI 判 high 时抬高 medium 到 high", func() {
				gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
					return &ai.GenerateResult{Content: "high"}, nil
				}}
				alerts := &fakeAlertSink{}
				svc := NewCrisisService(gen, adminUsers("admin-1"), alerts, crisisTestConfig())

				assessment := svc.Assess(ctx, "everything feels hopeless", "user-1")
				So(assessment.RiskLevel, ShouldEqual, model.RiskHigh)
				So(assessment.RequiresAdminAlert, ShouldBeTrue)
				So(alerts.count(), ShouldEqual, 1)
			})
		})

		Convey("AI 层失败时回落到关键词层结果，绝不抛错", func() {
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return nil, errors.New("provider down")
			}}
			svc := NewCrisisService(gen, adminUsers(), &fakeAlertSink{}, crisisTestConfig())

			assessment := svc.Assess(ctx, "everything feels hopeless", "user-1")
			So(assessment.RiskLevel, ShouldEqual, model.RiskMedium)
		})

		Convey("AI 输出不可解析时按 medium 处理", func() {
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{Content: "I cannot classify this"}, nil
			}}
			svc := NewCrisisService(gen, adminUsers(), &fakeAlertSink{}, crisisTestConfig())

			assessment := svc.Assess(ctx, "everything feels hopeless", "user-1")
			So(assessment.AIAssessment.RiskLevel, ShouldEqual, model.RiskMedium)
			So(assessment.RiskLevel, ShouldEqual, model.RiskMedium)
		})

		Convey("告警投递失败被吞掉，评估结果不受影响", func() {
			alerts := &fakeAlertSink{createErr: errors.New("mongo down")}
			svc := NewCrisisService(&fakeGen{}, adminUsers("admin-1"), alerts, crisisTestConfig())

			assessment := svc.Assess(ctx, "I want to end my life", "user-1")
			So(assessment.RiskLevel, ShouldEqual, model.RiskHigh)
			So(assessment.RequiresAdminAlert, ShouldBeTrue)
		})

		Convey("关闭 AI 二次分级时只用关键词层", func() {
			cfg := crisisTestConfig()
			cfg.AIRefinement = false
			gen := &fakeGen{generateFn: func(req *ai.GenerateRequest) (*ai.GenerateResult, error) {
				return &ai.GenerateResult{Content: "high"}, nil
			}}
			svc := NewCrisisService(gen, adminUsers(), &fakeAlertSink{}, cfg)

			assessment := svc.Assess(ctx, "everything feels hopeless", "user-1")
			So(assessment.RiskLevel, ShouldEqual, model.RiskMedium)
			generateCalls, _ := gen.calls()
			So(generateCalls, ShouldEqual, 0)
		})
	})
}

// TestParseRiskLevel 测试模型输出解析
func TestParseRiskLevel(t *testing.T) {
	Convey("风险等级解析测试", t, func() {
		So(parseRiskLevel("high"), ShouldEqual, model.RiskHigh)
		So(parseRiskLevel("The risk is HIGH."), ShouldEqual, model.RiskHigh)
		So(parseRiskLevel("low"), ShouldEqual, model.RiskLow)
		So(parseRiskLevel("medium"), ShouldEqual, model.RiskMedium)
		So(parseRiskLevel("gibberish"), ShouldEqual, model.RiskMedium)
	})
}
