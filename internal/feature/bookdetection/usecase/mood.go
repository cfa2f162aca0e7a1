package usecase

import "strings"

// DefaultMood はカテゴリからムードを判定できない場合の既定値です。
const DefaultMood = "cozy"

type moodRule struct {
	keywords []string
	mood     string
}

// moodRules は上から順に評価され、最初に一致したキーワードのムードを採用します。
var moodRules = []moodRule{
	{keywords: []string{"romance"}, mood: "romantic"},
	{keywords: []string{"thriller", "mystery", "crime"}, mood: "thrilling"},
	{keywords: []string{"horror", "dystopian"}, mood: "dark"},
	{keywords: []string{"philosophy", "literary", "biography"}, mood: "literary"},
	{keywords: []string{"comedy", "humor", "inspirational"}, mood: "uplifting"},
	{keywords: []string{"fantasy", "cozy", "family"}, mood: "cozy"},
}

// InferMood はカタログのジャンル文字列からムードタグを推定します。
func InferMood(category string) string {
	lower := strings.ToLower(category)
	if lower == "" {
		return DefaultMood
	}
	for _, rule := range moodRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.mood
			}
		}
	}
	return DefaultMood
}
