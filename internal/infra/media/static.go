package media

import (
	"context"
	"strings"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

// StaticVideoSearcher serves a built-in catalog when no search API key is
// configured. It keeps the search endpoint functional in development and in
// environments without outbound network access.
type StaticVideoSearcher struct {
	catalog []domain.Video
}

// NewStaticVideoSearcher builds a searcher over the default catalog.
func NewStaticVideoSearcher() *StaticVideoSearcher {
	return &StaticVideoSearcher{catalog: defaultCatalog()}
}

// Search returns catalog entries whose title contains every query token.
func (s *StaticVideoSearcher) Search(_ context.Context, query string, limit int) ([]domain.Video, error) {
	tokens := strings.Fields(strings.ToLower(query))

	results := make([]domain.Video, 0, limit)
	for _, video := range s.catalog {
		if len(results) >= limit {
			break
		}
		if matchesAll(strings.ToLower(video.Title), tokens) {
			results = append(results, video)
		}
	}

	return results, nil
}

func matchesAll(title string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(title, token) {
			return false
		}
	}
	return true
}

func defaultCatalog() []domain.Video {
	return []domain.Video{
		{
			ID:        "static-quest-basics",
			Title:     "Quest basics: accepting and completing your first quest",
			Channel:   "QuestForge Academy",
			URL:       watchURLPrefix + "static-quest-basics",
			Thumbnail: "https://i.ytimg.com/vi/static-quest-basics/default.jpg",
			Duration:  "4:12",
		},
		{
			ID:        "static-task-submit",
			Title:     "Submitting a task before the deadline",
			Channel:   "QuestForge Academy",
			URL:       watchURLPrefix + "static-task-submit",
			Thumbnail: "https://i.ytimg.com/vi/static-task-submit/default.jpg",
			Duration:  "3:05",
		},
		{
			ID:        "static-profile-tour",
			Title:     "Profile page tour: badges, progress and settings",
			Channel:   "QuestForge Academy",
			URL:       watchURLPrefix + "static-profile-tour",
			Thumbnail: "https://i.ytimg.com/vi/static-profile-tour/default.jpg",
			Duration:  "5:48",
		},
		{
			ID:        "static-feedback-guide",
			Title:     "How to report a bug or suggest an improvement",
			Channel:   "QuestForge Academy",
			URL:       watchURLPrefix + "static-feedback-guide",
			Thumbnail: "https://i.ytimg.com/vi/static-feedback-guide/default.jpg",
			Duration:  "2:31",
		},
		{
			ID:        "static-reward-system",
			Title:     "Understanding quest rewards and experience points",
			Channel:   "QuestForge Academy",
			URL:       watchURLPrefix + "static-reward-system",
			Thumbnail: "https://i.ytimg.com/vi/static-reward-system/default.jpg",
			Duration:  "6:20",
		},
	}
}

var _ port.VideoSearcher = (*StaticVideoSearcher)(nil)
