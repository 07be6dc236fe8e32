package journaltools

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// TestHeuristicSentiment 测试关键词计数情感启发式
func TestHeuristicSentiment(t *testing.T) {
	Convey("情感启发式测试", t, func() {
		Convey("负面词占多数时为 negative", func() {
			score, label := HeuristicSentiment("I feel sad and tired and stressed")
			So(score, ShouldBeLessThan, -0.2)
			So(label, ShouldEqual, "negative")
		})

		Convey("正面词占多数时为 positive", func() {
			score, label := HeuristicSentiment("Today was great, I feel happy and grateful")
			So(score, ShouldBeGreaterThan, 0.2)
			So(label, ShouldEqual, "positive")
		})

		Convey("无情感词时为 neutral 且分数为 0", func() {
			score, label := HeuristicSentiment("I went to the library and read a book")
			So(score, ShouldEqual, 0)
			So(label, ShouldEqual, "neutral")
		})

		Convey("正负抵消时为 neutral", func() {
			score, label := HeuristicSentiment("happy but sad")
			So(score, ShouldEqual, 0)
			So(label, ShouldEqual, "neutral")
		})
	})
}

// TestTruncate 测试 rune 安全截断
func TestTruncate(t *testing.T) {
	Convey("截断测试", t, func() {
		Convey("短文本原样返回", func() {
			So(Truncate("hello", 10), ShouldEqual, "hello")
		})

		Convey("超长文本截断并加省略号", func() {
			So(Truncate("hello world", 5), ShouldEqual, "hello...")
		})

		Convey("多字节字符不被截断成半个", func() {
			out := Truncate("今天心情很不错啊", 4)
			So(out, ShouldEqual, "今天心情...")
		})

		Convey("maxChars 为 0 时返回空串", func() {
			So(Truncate("hello", 0), ShouldEqual, "")
		})
	})
}

// TestEstimateTokens 测试 token 估算
func TestEstimateTokens(t *testing.T) {
	Convey("token 估算测试", t, func() {
		So(EstimateTokens("", 4), ShouldEqual, 0)
		So(EstimateTokens("abcd", 4), ShouldEqual, 1)
		So(EstimateTokens("abcde", 4), ShouldEqual, 2)
		// 非法比例回退到默认值 4
		So(EstimateTokens("abcd", 0), ShouldEqual, 1)
	})
}

// TestThemeExtractor 测试主题提取
func TestThemeExtractor(t *testing.T) {
	Convey("主题提取测试", t, func() {
		// 用空白切分路径做确定性验证，gse 路径只验证不崩溃
		e := &ThemeExtractor{}

		Convey("按固定顺序输出命中的主题", func() {
			themes := e.Extract("the exam went badly, I'm so stressed and couldn't sleep")
			So(themes, ShouldResemble, []string{"academics", "sleep", "stress"})
		})

		Convey("按词精确匹配，子串不误命中", func() {
			themes := e.Extract("we watched a classic movie")
			So(themes, ShouldBeEmpty)
		})

		Convey("空文本返回空", func() {
			So(e.Extract("   "), ShouldBeEmpty)
		})

		Convey("gse 分词器路径不崩溃", func() {
			ge := NewThemeExtractor()
			So(func() { ge.Extract("stressed about my exam " + strings.Repeat("tired ", 3)) }, ShouldNotPanic)
		})
	})
}
