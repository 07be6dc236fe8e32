package journaltools

// Truncate 按字符数截断文本（rune 安全），超长时追加省略号
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}

// EstimateTokens 用固定字符/token 比例估算 token 数
func EstimateTokens(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	n := len([]rune(text))
	return (n + charsPerToken - 1) / charsPerToken
}
