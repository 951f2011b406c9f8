package repo

import (
	"context"

	"github.com/minderhq/minder/internal/biz/domain"
)

// Replier is the generative-reply collaborator, consulted only when no
// command matches. It must tolerate an empty history. Callers treat it
// as a pure function; its failures are substituted with a local
// fallback reply at the routing boundary.
type Replier interface {
	Generate(ctx context.Context, sessionID, text string, history []*domain.Message) (string, error)
}
