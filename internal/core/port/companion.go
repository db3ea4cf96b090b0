package port

import (
	"context"

	"github.com/questforge/platform-guard/internal/core/domain"
)

// CompanionAgent produces an answer for a classified query. Implementations may
// call remote models; callers treat any invocation as expensive and consult the
// response cache first.
type CompanionAgent interface {
	Answer(ctx context.Context, query domain.CompanionQuery) (domain.CompanionReply, error)
}
