package journaltools

import (
	"strings"
)

// positiveWords / negativeWords 关键词计数启发式的词表
var positiveWords = []string{
	"happy", "glad", "great", "good", "grateful", "excited", "proud",
	"calm", "relaxed", "hopeful", "better", "fun", "love", "enjoyed",
}

var negativeWords = []string{
	"sad", "bad", "angry", "upset", "anxious", "stressed", "worried",
	"tired", "exhausted", "lonely", "scared", "hopeless", "terrible",
	"hate", "cry", "crying", "worse", "awful",
}

// HeuristicSentiment 关键词计数情感启发式
// AI 情感分析失败时的确定性降级：score = (pos - neg) / (pos + neg)
func HeuristicSentiment(text string) (score float64, label string) {
	lowered := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(lowered, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lowered, w)
	}

	total := pos + neg
	if total == 0 {
		return 0, "neutral"
	}

	score = float64(pos-neg) / float64(total)
	switch {
	case score < -0.2:
		label = "negative"
	case score > 0.2:
		label = "positive"
	default:
		label = "neutral"
	}
	return score, label
}
