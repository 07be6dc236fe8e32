package model

// RiskLevel 危机风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// IsValid 检查等级是否有效
func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// String 返回等级字符串
func (r RiskLevel) String() string {
	return string(r)
}

// Severity 返回等级的序数，用于比较（low < medium < high）
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// MaxRiskLevel 返回两个等级中较高的一个
// 只升不降：AI 二次分级只能抬高关键词层的结果
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// CrisisAssessment 危机评估结果（临时值对象，不落库）
// 只有摘要信息会写进 Message.Metadata
type CrisisAssessment struct {
	IsCrisis           bool            `json:"is_crisis"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	MatchedKeywords    []string        `json:"matched_keywords,omitempty"`
	AIAssessment       *AIAssessment   `json:"ai_assessment,omitempty"`
	Resources          *ResourceBundle `json:"resources,omitempty"`
	RequiresAdminAlert bool            `json:"requires_admin_alert"`
}

// AIAssessment AI 二次分级结果
type AIAssessment struct {
	RiskLevel RiskLevel `json:"risk_level"`
	Raw       string    `json:"raw,omitempty"` // 模型原始输出，便于排查
}

// ResourceBundle 按风险等级组织的援助资源
type ResourceBundle struct {
	RiskLevel     RiskLevel `json:"risk_level"`
	Hotlines      Hotlines  `json:"hotlines"`
	UrgentMessage string    `json:"urgent_message,omitempty"` // high 等级必填
	Suggestions   []string  `json:"suggestions"`
}

// Hotlines 援助热线
type Hotlines struct {
	National NationalHotline `json:"national"`
	Campus   CampusContact   `json:"campus"`
}

// NationalHotline 全国热线
type NationalHotline struct {
	Number    string `json:"number"`
	Available string `json:"available"`
}

// CampusContact 校园联系方式
type CampusContact struct {
	Info string `json:"info"`
}
