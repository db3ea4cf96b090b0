package domain

import "strings"

// Companion query categories recognised by routing, caching, and metrics.
// Queries carrying any other category still flow through the agent but are
// never counted or cached.
const (
	CategoryGeneral    = "general"
	CategoryQuestHelp  = "quest_help"
	CategoryTaskHelp   = "task_help"
	CategoryNavigation = "navigation"
	CategoryFeedback   = "feedback"
)

// KnownCategories lists every category the platform tracks, in display order.
func KnownCategories() []string {
	return []string{
		CategoryGeneral,
		CategoryQuestHelp,
		CategoryTaskHelp,
		CategoryNavigation,
		CategoryFeedback,
	}
}

// KnownLanguages lists the language tags the platform serves.
func KnownLanguages() []string {
	return []string{"en", "es", "pt", "fr", "de"}
}

// CompanionQuery is a single question posed to the companion agent, scoped by
// category and language.
type CompanionQuery struct {
	Text     string
	Category string
	Language string
}

// NormalizedText returns the query text lowercased with surrounding whitespace
// removed. Cache keys are derived from this form so trivially different
// spellings of the same question collide.
func (q CompanionQuery) NormalizedText() string {
	return strings.ToLower(strings.TrimSpace(q.Text))
}

// CompanionReply is the agent's answer to a query. Replies flagged as errors
// must never enter the response cache.
type CompanionReply struct {
	Reply      string
	Category   string
	Language   string
	Confidence float64
	Cached     bool
	IsError    bool
}
