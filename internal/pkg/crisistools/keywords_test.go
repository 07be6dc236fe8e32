package crisistools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"zenly/internal/model"
)

// TestScan 测试关键词分级
func TestScan(t *testing.T) {
	Convey("关键词分级测试", t, func() {
		Convey("高风险关键词命中时定级 high", func() {
			result := Scan("I want to kill myself, nothing matters")
			So(result.RiskLevel, ShouldEqual, model.RiskHigh)
			So(result.Matched, ShouldContain, "kill myself")
		})

		Convey("大小写不敏感", func() {
			result := Scan("I WANT TO END MY LIFE")
			So(result.RiskLevel, ShouldEqual, model.RiskHigh)
			So(result.Matched, ShouldContain, "end my life")
		})

		Convey("高风险命中时跳过中风险集合", func() {
			// 同时含高风险和中风险词，matched 里只应出现高风险词
			result := Scan("I feel hopeless and I want to hurt myself")
			So(result.RiskLevel, ShouldEqual, model.RiskHigh)
			So(result.Matched, ShouldContain, "hurt myself")
			So(result.Matched, ShouldNotContain, "hopeless")
		})

		Convey("仅中风险关键词命中时定级 medium", func() {
			result := Scan("Everything feels hopeless and I hate myself")
			So(result.RiskLevel, ShouldEqual, model.RiskMedium)
			So(result.Matched, ShouldContain, "hopeless")
			So(result.Matched, ShouldContain, "hate myself")
		})

		Convey("普通压力文本定级 low", func() {
			result := Scan("I'm a bit stressed about exams")
			So(result.RiskLevel, ShouldEqual, model.RiskLow)
			So(result.Matched, ShouldBeEmpty)
		})

		Convey("空文本定级 low", func() {
			result := Scan("")
			So(result.RiskLevel, ShouldEqual, model.RiskLow)
		})
	})
}

// TestContainsHighRisk 测试流式复扫的快速路径
func TestContainsHighRisk(t *testing.T) {
	Convey("高风险快速检测测试", t, func() {
		So(ContainsHighRisk("sometimes I think about suicide"), ShouldBeTrue)
		So(ContainsHighRisk("I feel hopeless"), ShouldBeFalse)
		So(ContainsHighRisk("today was a good day"), ShouldBeFalse)
	})
}

// TestBundleForLevel 测试资源包组装
func TestBundleForLevel(t *testing.T) {
	Convey("资源包组装测试", t, func() {
		Convey("high 等级必须携带紧急行动号召", func() {
			bundle := BundleForLevel(model.RiskHigh)
			So(bundle.RiskLevel, ShouldEqual, model.RiskHigh)
			So(bundle.UrgentMessage, ShouldNotBeEmpty)
			So(bundle.Hotlines.National.Number, ShouldEqual, "988")
			So(bundle.Suggestions, ShouldNotBeEmpty)
		})

		Convey("medium/low 等级不带紧急号召但有建议", func() {
			for _, level := range []model.RiskLevel{model.RiskMedium, model.RiskLow} {
				bundle := BundleForLevel(level)
				So(bundle.UrgentMessage, ShouldBeEmpty)
				So(bundle.Suggestions, ShouldNotBeEmpty)
				So(bundle.Hotlines.Campus.Info, ShouldNotBeEmpty)
			}
		})

		Convey("同等级两次调用结构一致", func() {
			a := BundleForLevel(model.RiskHigh)
			b := BundleForLevel(model.RiskHigh)
			So(a, ShouldResemble, b)
			// 不同对象，互相修改不串扰
			So(a, ShouldNotEqual, b)
		})
	})
}
