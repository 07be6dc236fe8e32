// Package journaltools 日记文本的本地分析工具：主题提取、情感启发式、截断。
// 全部为纯函数/本地计算，作为 AI 分析失败时的确定性降级路径。
package journaltools

import (
	"strings"

	"github.com/go-ego/gse"
)

// themeKeywords 固定主题词表：主题 -> 触发词
var themeKeywords = map[string][]string{
	"academics":     {"exam", "exams", "class", "classes", "assignment", "homework", "grades", "study", "studying", "deadline"},
	"relationships": {"friend", "friends", "roommate", "partner", "boyfriend", "girlfriend", "family", "parents", "breakup"},
	"sleep":         {"sleep", "insomnia", "tired", "exhausted", "awake", "nap"},
	"stress":        {"stress", "stressed", "anxious", "anxiety", "overwhelmed", "pressure", "panic"},
	"loneliness":    {"alone", "lonely", "isolated", "homesick"},
	"health":        {"sick", "ill", "headache", "appetite", "eating", "exercise"},
	"finances":      {"money", "rent", "tuition", "broke", "job", "work"},
}

// ThemeExtractor 主题提取器
type ThemeExtractor struct {
	segmenter *gse.Segmenter // gse 分词器
}

// NewThemeExtractor 创建主题提取器
func NewThemeExtractor() *ThemeExtractor {
	// 初始化 gse 分词器
	segmenter, err := gse.New()
	if err != nil {
		// 初始化失败则降级到空白切分
		return &ThemeExtractor{}
	}
	return &ThemeExtractor{segmenter: &segmenter}
}

// Extract 从拼接后的日记文本中提取命中的主题
// 分词后按词精确匹配，避免 "classic" 误命中 "class" 这类子串问题
func (e *ThemeExtractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	words := e.tokenize(strings.ToLower(text))
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	// map 遍历无序，按固定顺序输出，保证结果可复现
	var themes []string
	for _, theme := range orderedThemes {
		for _, kw := range themeKeywords[theme] {
			if wordSet[kw] {
				themes = append(themes, theme)
				break
			}
		}
	}
	return themes
}

// orderedThemes 主题的固定输出顺序
var orderedThemes = []string{
	"academics", "relationships", "sleep", "stress", "loneliness", "health", "finances",
}

// tokenize 切词；gse 不可用时退化为按空白和标点切分
func (e *ThemeExtractor) tokenize(text string) []string {
	if e.segmenter != nil {
		return e.segmenter.CutAll(text)
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
}
