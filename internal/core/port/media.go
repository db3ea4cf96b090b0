package port

import (
	"context"

	"github.com/questforge/platform-guard/internal/core/domain"
)

// VideoSearcher proxies a third-party video search API. Calls are metered and
// guarded upstream; implementations only translate queries and results.
type VideoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Video, error)
}
