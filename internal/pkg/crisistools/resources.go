package crisistools

import (
	"zenly/internal/model"
)

// BundleForLevel 按最终风险等级生成援助资源包
// 每次调用都构造新对象，同等级两次调用结构一致
func BundleForLevel(level model.RiskLevel) *model.ResourceBundle {
	bundle := &model.ResourceBundle{
		RiskLevel: level,
		Hotlines: model.Hotlines{
			National: model.NationalHotline{
				Number:    "988",
				Available: "24/7",
			},
			Campus: model.CampusContact{
				Info: "Campus Counseling Center: visit the student services building or call the front desk to book a same-week appointment.",
			},
		},
	}

	switch level {
	case model.RiskHigh:
		// high 等级必须携带紧急行动号召
		bundle.UrgentMessage = "You matter, and you don't have to face this alone. Please call or text 988 right now, or go to your nearest emergency room."
		bundle.Suggestions = []string{
			"Call or text the 988 Suicide & Crisis Lifeline right now",
			"Reach out to campus counseling for an emergency same-day session",
			"Stay with a trusted friend, roommate, or family member tonight",
		}
	case model.RiskMedium:
		bundle.Suggestions = []string{
			"Schedule a check-in with a campus counselor this week",
			"Talk to someone you trust about how you've been feeling",
			"Try a short grounding exercise: name 5 things you can see, 4 you can touch, 3 you can hear",
		}
	default:
		bundle.Suggestions = []string{
			"Keep journaling regularly to track how you're feeling",
			"Campus counseling is available if you ever want to talk",
		}
	}

	return bundle
}
